package charges

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
)

// TicketRate is the unit price of one attendance day from From onwards.
type TicketRate struct {
	From  time.Time
	Price decimal.Decimal
}

// RateTable resolves the ticket rate applying at a day.
type RateTable struct {
	rates []TicketRate
}

// NewRateTable validates and indexes the rates.
func NewRateTable(rates []TicketRate) (*RateTable, error) {
	sorted := make([]TicketRate, 0, len(rates))
	for _, r := range rates {
		r.From = ledger.TruncateDay(r.From)
		if r.Price.IsNegative() {
			return nil, ErrNegativeAmount
		}
		sorted = append(sorted, r)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From.Before(sorted[j].From) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].From.Equal(sorted[i-1].From) {
			return nil, ErrDuplicateRate
		}
	}
	return &RateTable{rates: sorted}, nil
}

// TicketRateAt returns the rate with the latest From not after day.
func (t *RateTable) TicketRateAt(day time.Time) (decimal.Decimal, bool) {
	if t == nil || len(t.rates) == 0 {
		return decimal.Zero, false
	}
	day = ledger.TruncateDay(day)
	i := sort.Search(len(t.rates), func(i int) bool { return t.rates[i].From.After(day) })
	if i == 0 {
		return decimal.Zero, false
	}
	return t.rates[i-1].Price, true
}

// FixedRate applies the same ticket price to every day.
type FixedRate struct {
	price decimal.Decimal
}

// NewFixedRate constructs a FixedRate.
func NewFixedRate(price decimal.Decimal) (*FixedRate, error) {
	if price.IsNegative() {
		return nil, ErrNegativeAmount
	}
	return &FixedRate{price: price}, nil
}

// TicketRateAt returns the configured price.
func (f *FixedRate) TicketRateAt(day time.Time) (decimal.Decimal, bool) {
	_ = day
	return f.price, true
}
