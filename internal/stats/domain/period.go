package stats

import (
	"fmt"
	"strings"
	"time"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
)

// PeriodType is the calendar bucket used to group statistics.
type PeriodType string

const (
	PeriodDay   PeriodType = "day"
	PeriodWeek  PeriodType = "week"
	PeriodMonth PeriodType = "month"
	PeriodYear  PeriodType = "year"
)

// IsValid reports whether the period type is supported.
func (p PeriodType) IsValid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	default:
		return false
	}
}

// ParsePeriodType parses a case-insensitive period type.
func ParsePeriodType(value string) (PeriodType, error) {
	p := PeriodType(strings.ToLower(strings.TrimSpace(value)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %w %q", ErrInvalidInput, ErrInvalidPeriodType, value)
	}
	return p, nil
}

// PeriodStart returns the first day of the period of type p containing day.
// Weeks start on Monday.
func PeriodStart(p PeriodType, day time.Time) time.Time {
	day = ledger.TruncateDay(day)
	switch p {
	case PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case PeriodMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	case PeriodYear:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// Period is a calendar bucket with an inclusive last day.
type Period struct {
	Type  PeriodType
	Start time.Time
	End   time.Time
}

// NewPeriod returns the period of type p containing day.
func NewPeriod(p PeriodType, day time.Time) Period {
	start := PeriodStart(p, day)
	var next time.Time
	switch p {
	case PeriodWeek:
		next = start.AddDate(0, 0, 7)
	case PeriodMonth:
		next = start.AddDate(0, 1, 0)
	case PeriodYear:
		next = start.AddDate(1, 0, 0)
	default:
		next = start.AddDate(0, 0, 1)
	}
	return Period{Type: p, Start: start, End: next.AddDate(0, 0, -1)}
}

// Key is the cache key of the period: "{type}-{YYYY-MM-DD}".
func (p Period) Key() string {
	return string(p.Type) + "-" + ledger.FormatDate(p.Start)
}

// IsCurrent reports whether the period is still in progress at today.
func (p Period) IsCurrent(today time.Time) bool {
	return !ledger.TruncateDay(today).After(p.End)
}

// Days lists every day of the period in order.
func (p Period) Days() []time.Time {
	days := make([]time.Time, 0, ledger.DaysBetweenInclusive(p.Start, p.End))
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Next returns the period that immediately follows p.
func (p Period) Next() Period {
	return NewPeriod(p.Type, p.End.AddDate(0, 0, 1))
}

// BuildPeriods expands [from, to] into ascending periods. The first period
// starts at the boundary containing from and the last one contains to.
func BuildPeriods(p PeriodType, from, to time.Time) ([]Period, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %w %q", ErrInvalidInput, ErrInvalidPeriodType, p)
	}
	from = ledger.TruncateDay(from)
	to = ledger.TruncateDay(to)
	if from.After(to) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidRange)
	}
	var periods []Period
	for period := NewPeriod(p, from); !period.Start.After(to); period = period.Next() {
		periods = append(periods, period)
	}
	return periods, nil
}
