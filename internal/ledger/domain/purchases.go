package ledger

import "time"

// TicketOrder is a batch of prepaid attendance units.
type TicketOrder struct {
	ID              string
	MemberID        string
	PurchaseDate    time.Time
	TicketsQuantity int
	Price           float64
	OrderReference  string
}

// Validate checks the ticket order invariants.
func (o TicketOrder) Validate() error {
	if o.ID == "" {
		return ErrEmptyID
	}
	if o.MemberID == "" {
		return ErrEmptyMemberID
	}
	if o.PurchaseDate.IsZero() {
		return ErrInvalidDate
	}
	if o.TicketsQuantity < 0 {
		return ErrInvalidQuantity
	}
	if o.Price < 0 {
		return ErrNegativePrice
	}
	return nil
}

// Subscription grants unlimited attendance for one month starting at StartDate.
type Subscription struct {
	ID           string
	MemberID     string
	PurchaseDate time.Time
	StartDate    time.Time
	Price        float64
}

// Validate checks the subscription invariants.
func (s Subscription) Validate() error {
	if s.ID == "" {
		return ErrEmptyID
	}
	if s.MemberID == "" {
		return ErrEmptyMemberID
	}
	if s.StartDate.IsZero() {
		return ErrInvalidDate
	}
	if s.Price < 0 {
		return ErrNegativePrice
	}
	return nil
}

// EndDate is the last covered day: StartDate + 1 month - 1 day.
func (s Subscription) EndDate() time.Time {
	return AddMonthsClamped(s.StartDate, 1).AddDate(0, 0, -1)
}

// Covers reports whether day falls inside the coverage window (inclusive).
func (s Subscription) Covers(day time.Time) bool {
	day = TruncateDay(day)
	start := TruncateDay(s.StartDate)
	return !day.Before(start) && !day.After(s.EndDate())
}

// WindowDays is the number of days in the coverage window.
func (s Subscription) WindowDays() int {
	return DaysBetweenInclusive(s.StartDate, s.EndDate())
}

// PurchasedOn is the day the subscription was paid, defaulting to its start.
func (s Subscription) PurchasedOn() time.Time {
	if s.PurchaseDate.IsZero() {
		return TruncateDay(s.StartDate)
	}
	return TruncateDay(s.PurchaseDate)
}

// Membership is the annual association fee. It does not grant attendance.
type Membership struct {
	ID              string
	MemberID        string
	PurchaseDate    time.Time
	MembershipStart time.Time
	Price           float64
}

// PurchasedOn is the day the membership was paid, defaulting to its start.
func (m Membership) PurchasedOn() time.Time {
	if m.PurchaseDate.IsZero() {
		return TruncateDay(m.MembershipStart)
	}
	return TruncateDay(m.PurchaseDate)
}

// Member is the profile used to label per-member rollups.
type Member struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	CreatedAt time.Time
}

// DisplayName joins first and last name.
func (m Member) DisplayName() string {
	switch {
	case m.FirstName == "":
		return m.LastName
	case m.LastName == "":
		return m.FirstName
	default:
		return m.FirstName + " " + m.LastName
	}
}
