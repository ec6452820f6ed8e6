package ledger

import "time"

// Attendance values a presence collaborator may report for a day.
const (
	ActivityNone = 0.0
	ActivityHalf = 0.5
	ActivityFull = 1.0
)

// MemberActivity is the attendance of one member on one day.
// There is at most one record per (member, date); a missing record means value 0.
type MemberActivity struct {
	MemberID string
	Date     time.Time
	Value    float64
}

// Validate checks the attendance invariants.
func (a MemberActivity) Validate() error {
	if a.MemberID == "" {
		return ErrEmptyMemberID
	}
	if a.Date.IsZero() {
		return ErrInvalidDate
	}
	if a.Value < 0 || a.Value > 1 {
		return ErrInvalidActivityValue
	}
	return nil
}

// ClampActivityValue bounds v to [0, 1].
func ClampActivityValue(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
