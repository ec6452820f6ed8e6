package coverage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type tells how an attendance day was paid for.
type Type string

const (
	TypeSubscription Type = "subscription"
	TypeTicket       Type = "ticket"
)

// Debt is the part of a day's attendance not covered by any ticket.
type Debt struct {
	Value float64 `json:"value"`
}

// Result is the coverage of one member on one attended day.
type Result struct {
	MemberID       string          `json:"memberId"`
	Date           time.Time       `json:"date"`
	Type           Type            `json:"type"`
	Value          float64         `json:"value"`
	Amount         decimal.Decimal `json:"amount"`
	SubscriptionID string          `json:"subscriptionId,omitempty"`
	Debt           *Debt           `json:"debt,omitempty"`
}

// DebtValue returns the uncovered attendance, 0 when fully covered.
func (r Result) DebtValue() float64 {
	if r.Debt == nil {
		return 0
	}
	return r.Debt.Value
}

// TicketValue returns the attendance paid with tickets.
func (r Result) TicketValue() float64 {
	if r.Type != TypeTicket {
		return 0
	}
	return r.Value - r.DebtValue()
}
