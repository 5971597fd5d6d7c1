package models

import (
	"fmt"
	"regexp"
)

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// Intervals accepted by the quote provider.
var Intervals = []string{"1m", "5m", "15m", "30m", "60m", "1h", "1d", "1wk", "1mo"}

// PredictRequest asks for a projection of Symbol over Time.
type PredictRequest struct {
	Symbol   string   `json:"symbol" query:"symbol" validate:"required,ticker"`
	Time     TimeUnit `json:"time"`
	Interval string   `json:"interval,omitempty" query:"interval" validate:"omitempty,oneof=1m 5m 15m 30m 60m 1h 1d 1wk 1mo"`
}

// IsValidSymbol reports whether s is 1 to 5 uppercase ASCII letters.
func IsValidSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}

func ValidateSymbol(s string) error {
	if !IsValidSymbol(s) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	return nil
}
