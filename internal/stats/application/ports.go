package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
)

// Ledger ports consumed by the aggregator.
type (
	ActivityReader     = ledger.ActivityReader
	TicketReader       = ledger.TicketReader
	SubscriptionReader = ledger.SubscriptionReader
	MembershipReader   = ledger.MembershipReader
	MemberDirectory    = ledger.MemberDirectory
	LedgerStore        = ledger.Store
)

// Cache stores summaries of closed periods.
type Cache interface {
	Get(ctx context.Context, key string) (stats.PeriodSummary, bool)
	Set(ctx context.Context, key string, summary stats.PeriodSummary)
}

// ChargeAllocator returns the operating cost allocated to a day.
type ChargeAllocator interface {
	DailyShare(day time.Time) (decimal.Decimal, bool)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the current time in UTC, the zone ledger days are
// expressed in.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type noCache struct{}

func (noCache) Get(context.Context, string) (stats.PeriodSummary, bool) {
	return stats.PeriodSummary{}, false
}

func (noCache) Set(context.Context, string, stats.PeriodSummary) {}

type noCharges struct{}

func (noCharges) DailyShare(time.Time) (decimal.Decimal, bool) { return decimal.Zero, false }
