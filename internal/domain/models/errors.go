package models

import "errors"

var (
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrInvalidTimeUnit  = errors.New("invalid time unit")
	ErrTimeRange        = errors.New("time range out of bounds")
	ErrNoData           = errors.New("no data returned")
	ErrUpstream         = errors.New("upstream failure")
	ErrInsufficientData = errors.New("insufficient data")
	ErrDegenerateFit    = errors.New("degenerate fit")
	ErrNotFound         = errors.New("not found")
)
