package util

import (
	"testing"
	"time"
)

func TestAlignWindowTruncates(t *testing.T) {
	from := time.Date(2024, 10, 10, 10, 10, 10, 500, time.UTC)
	to := from.Add(36 * time.Hour)

	gotFrom, gotTo := AlignWindow(from, to, time.Minute)
	if !gotFrom.Equal(time.Date(2024, 10, 10, 10, 10, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from %v", gotFrom)
	}
	if !gotTo.Equal(time.Date(2024, 10, 11, 22, 10, 0, 0, time.UTC)) {
		t.Fatalf("unexpected to %v", gotTo)
	}
}

func TestAlignWindowZeroStep(t *testing.T) {
	from := time.Unix(1700000001, 7)
	to := from.Add(time.Hour)
	gotFrom, gotTo := AlignWindow(from, to, 0)
	if !gotFrom.Equal(from) || !gotTo.Equal(to) {
		t.Fatalf("expected unchanged window, got %v..%v", gotFrom, gotTo)
	}
}

func TestClampDuration(t *testing.T) {
	if got := ClampDuration(time.Millisecond, 50*time.Millisecond, time.Second); got != 50*time.Millisecond {
		t.Fatalf("unexpected %v", got)
	}
	if got := ClampDuration(time.Minute, 50*time.Millisecond, time.Second); got != time.Second {
		t.Fatalf("unexpected %v", got)
	}
	if got := ClampDuration(200*time.Millisecond, 50*time.Millisecond, time.Second); got != 200*time.Millisecond {
		t.Fatalf("unexpected %v", got)
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("", 5); got != 5 {
		t.Fatalf("unexpected %d", got)
	}
	if got := ParseIntDefault("abc", 5); got != 5 {
		t.Fatalf("unexpected %d", got)
	}
	if got := ParseIntDefault("250", 5); got != 250 {
		t.Fatalf("unexpected %d", got)
	}
}
