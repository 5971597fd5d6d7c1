package models

import (
	"fmt"
	"math"
	"time"
)

type Unit string

const (
	UnitSeconds Unit = "seconds"
	UnitMinutes Unit = "minutes"
	UnitHours   Unit = "hours"
	UnitDays    Unit = "days"
	UnitWeeks   Unit = "weeks"
	UnitMonths  Unit = "months"
	UnitYears   Unit = "years"
)

// A month is 30 days and a year 365 days.
var unitSeconds = map[Unit]int64{
	UnitSeconds: 1,
	UnitMinutes: 60,
	UnitHours:   3600,
	UnitDays:    86400,
	UnitWeeks:   7 * 86400,
	UnitMonths:  30 * 86400,
	UnitYears:   365 * 86400,
}

// TimeUnit is a look-back period such as {"unit":"days","value":30}.
// Value doubles as the number of prediction steps.
type TimeUnit struct {
	Unit  Unit  `json:"unit" query:"unit" validate:"required,oneof=seconds minutes hours days weeks months years"`
	Value int64 `json:"value" query:"value" validate:"required,gte=1"`
}

// Number returns the raw count carried by the unit.
func (t TimeUnit) Number() int64 {
	return t.Value
}

// AsSeconds converts the period to seconds, rejecting overflow.
func (t TimeUnit) AsSeconds() (int64, error) {
	mult, ok := unitSeconds[t.Unit]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidTimeUnit, t.Unit)
	}
	if t.Value < 1 {
		return 0, fmt.Errorf("%w: value must be at least 1, got %d", ErrTimeRange, t.Value)
	}
	if t.Value > math.MaxInt64/mult {
		return 0, fmt.Errorf("%w: %d %s overflows", ErrTimeRange, t.Value, t.Unit)
	}
	return t.Value * mult, nil
}

// Window returns the [start, end] range ending at now. The start may not
// fall before the unix epoch.
func (t TimeUnit) Window(now time.Time) (time.Time, time.Time, error) {
	secs, err := t.AsSeconds()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if secs > now.Unix() {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s reaches before 1970", ErrTimeRange, t)
	}
	return now.Add(-time.Duration(secs) * time.Second), now, nil
}

func (t TimeUnit) String() string {
	return fmt.Sprintf("%d %s", t.Value, t.Unit)
}
