package ledger

import (
	"fmt"
	"time"
)

// DateLayout is the persisted representation of a calendar day.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed.UTC(), nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(value string) time.Time {
	parsed, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return parsed
}

// FormatDate renders a day as YYYY-MM-DD.
func FormatDate(day time.Time) string {
	return day.Format(DateLayout)
}

// TruncateDay drops the time of day, keeping the calendar date of t.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddMonthsClamped adds months to day, clamping to the last day of the target
// month instead of overflowing (Jan 31 + 1 month = Feb 28 or 29).
func AddMonthsClamped(day time.Time, months int) time.Time {
	day = TruncateDay(day)
	firstOfTarget := time.Date(day.Year(), day.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := DaysInMonth(firstOfTarget)
	d := day.Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days of the month containing t.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysBetweenInclusive counts calendar days in [from, to]. It returns 0 when to
// is before from.
func DaysBetweenInclusive(from, to time.Time) int {
	from = TruncateDay(from)
	to = TruncateDay(to)
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}
