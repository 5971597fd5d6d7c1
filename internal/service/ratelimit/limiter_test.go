package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesAndRefills(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestSweepDropsIdleFullBuckets(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(time.Hour)
	l.Allow("new")

	assert.Equal(t, 1, l.Sweep(time.Minute))
	assert.Equal(t, 1, l.Len())
	assert.True(t, l.Allow("old"))
	assert.True(t, l.Allow("old"))
	assert.False(t, l.Allow("old"))
}

func TestSweepKeepsDrainedBuckets(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))

	// Idle past the cutoff but only half a token back.
	now = now.Add(500 * time.Millisecond)
	assert.Zero(t, l.Sweep(100*time.Millisecond))
	assert.False(t, l.Allow("a"), "sweeping must not refill a drained key")

	now = now.Add(3 * time.Second)
	assert.Equal(t, 1, l.Sweep(time.Second))
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestSweepNeverDropsWithoutRefill(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(1, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	now = now.Add(24 * time.Hour)
	assert.Zero(t, l.Sweep(time.Minute))
	assert.False(t, l.Allow("a"))
}
