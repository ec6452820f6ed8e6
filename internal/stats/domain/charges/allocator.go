package charges

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
)

// Charge is an operating cost spread evenly over [From, To].
type Charge struct {
	From   time.Time
	To     time.Time
	Amount decimal.Decimal
}

// Days is the inclusive day count of the charge range.
func (c Charge) Days() int {
	return ledger.DaysBetweenInclusive(c.From, c.To)
}

// DailyAmount is Amount divided by Days.
func (c Charge) DailyAmount() decimal.Decimal {
	days := c.Days()
	if days <= 0 {
		return decimal.Zero
	}
	return c.Amount.Div(decimal.NewFromInt(int64(days)))
}

// Allocator returns the daily share of periodic operating costs.
// Ranges never overlap, so a day has at most one applicable charge.
type Allocator struct {
	charges []Charge
}

// NewAllocator validates and indexes the charges.
func NewAllocator(charges []Charge) (*Allocator, error) {
	sorted := make([]Charge, 0, len(charges))
	for _, c := range charges {
		c.From = ledger.TruncateDay(c.From)
		c.To = ledger.TruncateDay(c.To)
		if c.From.IsZero() || c.To.Before(c.From) {
			return nil, fmt.Errorf("%w: %s..%s", ErrInvalidRange, ledger.FormatDate(c.From), ledger.FormatDate(c.To))
		}
		if c.Amount.IsNegative() {
			return nil, ErrNegativeAmount
		}
		sorted = append(sorted, c)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From.Before(sorted[j].From) })
	for i := 1; i < len(sorted); i++ {
		if !sorted[i].From.After(sorted[i-1].To) {
			return nil, fmt.Errorf("%w: %s and %s",
				ErrOverlappingRanges, ledger.FormatDate(sorted[i-1].From), ledger.FormatDate(sorted[i].From))
		}
	}
	return &Allocator{charges: sorted}, nil
}

// DailyShare returns the charge allocated to day, and false when no range
// contains it (before the first tracked charge, in a gap, or after the last).
func (a *Allocator) DailyShare(day time.Time) (decimal.Decimal, bool) {
	if a == nil || len(a.charges) == 0 {
		return decimal.Zero, false
	}
	day = ledger.TruncateDay(day)
	i := sort.Search(len(a.charges), func(i int) bool { return !a.charges[i].To.Before(day) })
	if i == len(a.charges) || day.Before(a.charges[i].From) {
		return decimal.Zero, false
	}
	return a.charges[i].DailyAmount(), true
}
