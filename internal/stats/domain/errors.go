package stats

import "errors"

var (
	// ErrInvalidInput marks client errors: malformed dates, unknown period
	// types or inverted ranges. Never retried.
	ErrInvalidInput = errors.New("stats: invalid input")
	// ErrInvalidPeriodType is returned for unknown period types.
	ErrInvalidPeriodType = errors.New("stats: invalid period type")
	// ErrInvalidRange is returned when from is after to.
	ErrInvalidRange = errors.New("stats: from is after to")
)
