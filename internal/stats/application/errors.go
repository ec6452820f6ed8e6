package application

import (
	"fmt"
	"strings"
)

// PeriodError is the failure of a single period.
type PeriodError struct {
	Key string
	Err error
}

func (e PeriodError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e PeriodError) Unwrap() error { return e.Err }

// PeriodErrors lists the periods that could not be computed. It accompanies
// the summaries of the periods that were.
type PeriodErrors struct {
	Failures []PeriodError
}

func (e *PeriodErrors) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("stats: %d period(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes every period error to errors.Is and errors.As.
func (e *PeriodErrors) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// Keys returns the failed period keys.
func (e *PeriodErrors) Keys() []string {
	keys := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		keys = append(keys, f.Key)
	}
	return keys
}
