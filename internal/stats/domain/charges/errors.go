package charges

import "errors"

var (
	// ErrInvalidRange is returned when a charge ends before it starts.
	ErrInvalidRange = errors.New("charges: invalid range")
	// ErrOverlappingRanges is returned when two charges share a day.
	ErrOverlappingRanges = errors.New("charges: overlapping ranges")
	// ErrNegativeAmount is returned for negative charges or rates.
	ErrNegativeAmount = errors.New("charges: negative amount")
	// ErrDuplicateRate is returned when two ticket rates start on the same day.
	ErrDuplicateRate = errors.New("charges: duplicate ticket rate")
)
