package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/ledger/infrastructure/memory"
	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain/charges"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]stats.PeriodSummary
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]stats.PeriodSummary)}
}

func (c *mapCache) Get(_ context.Context, key string) (stats.PeriodSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[key]
	return s, ok
}

func (c *mapCache) Set(_ context.Context, key string, summary stats.PeriodSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = summary
	c.sets++
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// failingStore fails activity reads on one day.
type failingStore struct {
	*memory.Store
	failOn time.Time
}

func (s *failingStore) ListActivityByDate(ctx context.Context, day time.Time) ([]ledger.MemberActivity, error) {
	if day.Equal(s.failOn) {
		return nil, errors.New("ledger unavailable")
	}
	return s.Store.ListActivityByDate(ctx, day)
}

func day(value string) time.Time { return ledger.MustParseDate(value) }

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func attend(t *testing.T, store *memory.Store, member string, value float64, days ...string) {
	t.Helper()
	for _, d := range days {
		mustNoErr(t, store.SetActivity(ledger.MemberActivity{MemberID: member, Date: day(d), Value: value}))
	}
}

// seedStore builds two months of activity for three members.
func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	mustNoErr(t, store.AddMember(ledger.Member{ID: "alice", FirstName: "Alice", LastName: "Martin", Email: "alice@example.com"}))
	mustNoErr(t, store.AddMember(ledger.Member{ID: "bob", FirstName: "Bob", Email: "bob@example.com"}))

	mustNoErr(t, store.AddTicketOrder(ledger.TicketOrder{
		ID: "t1", MemberID: "alice", PurchaseDate: day("2024-01-02"), TicketsQuantity: 3, Price: 24,
	}))
	attend(t, store, "alice", 1, "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08")
	attend(t, store, "alice", 0.5, "2024-02-01")

	mustNoErr(t, store.AddSubscription(ledger.Subscription{
		ID: "s1", MemberID: "bob", PurchaseDate: day("2024-01-09"), StartDate: day("2024-01-10"), Price: 31,
	}))
	attend(t, store, "bob", 1, "2024-01-10", "2024-01-11", "2024-02-09")

	mustNoErr(t, store.AddTicketOrder(ledger.TicketOrder{
		ID: "t2", MemberID: "carol", PurchaseDate: day("2024-02-01"), TicketsQuantity: 10, Price: 75,
	}))
	attend(t, store, "carol", 1, "2024-02-05", "2024-02-06")
	mustNoErr(t, store.AddMembership(ledger.Membership{
		ID: "ms1", MemberID: "carol", PurchaseDate: day("2024-02-01"), MembershipStart: day("2024-01-01"), Price: 30,
	}))
	return store
}

func newAggregator(t *testing.T, store LedgerStore, cache Cache, clock Clock) *PeriodAggregator {
	t.Helper()
	rate, err := charges.NewFixedRate(decimal.NewFromInt(8))
	mustNoErr(t, err)
	allocator, err := charges.NewAllocator([]charges.Charge{{
		From: day("2024-01-01"), To: day("2024-12-31"), Amount: decimal.NewFromInt(3660),
	}})
	mustNoErr(t, err)
	agg, err := NewPeriodAggregator(store, rate, allocator, cache, clock, WithWorkers(4))
	mustNoErr(t, err)
	return agg
}

func TestNewPeriodAggregatorRequiresStore(t *testing.T) {
	rate, _ := charges.NewFixedRate(decimal.NewFromInt(8))
	if _, err := NewPeriodAggregator(nil, rate, nil, nil, nil); err == nil {
		t.Fatalf("expected nil store error")
	}
	if _, err := NewPeriodAggregator(memory.NewStore(), nil, nil, nil, nil); err == nil {
		t.Fatalf("expected nil rate error")
	}
}

func TestComputePeriodsStatsCachesClosedPeriods(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	cache := newMapCache()
	agg := newAggregator(t, store, cache, &fixedClock{now: day("2024-06-15")})

	opts := StatsOptions{From: day("2024-01-01"), To: day("2024-02-29")}
	first, err := agg.ComputePeriodsStats(ctx, stats.PeriodMonth, opts)
	mustNoErr(t, err)
	if len(first) != 2 {
		t.Fatalf("expected 2 months, got %d", len(first))
	}
	readsAfterFirst := store.Reads()
	if readsAfterFirst == 0 {
		t.Fatalf("expected ledger reads on first computation")
	}

	second, err := agg.ComputePeriodsStats(ctx, stats.PeriodMonth, opts)
	mustNoErr(t, err)
	if store.Reads() != readsAfterFirst {
		t.Fatalf("expected no ledger reads on cached call, got %d more", store.Reads()-readsAfterFirst)
	}
	for i := range first {
		if first[i].Date != second[i].Date || first[i].Data.ActiveMembers != second[i].Data.ActiveMembers ||
			!first[i].Data.UsageAmount.Equal(second[i].Data.UsageAmount) {
			t.Fatalf("cached result differs: %+v vs %+v", first[i], second[i])
		}
	}
	if cache.sets != 2 {
		t.Fatalf("expected 2 cache writes, got %d", cache.sets)
	}
}

func TestComputePeriodsStatsValues(t *testing.T) {
	ctx := context.Background()
	agg := newAggregator(t, seedStore(t), nil, &fixedClock{now: day("2024-06-15")})

	summaries, err := agg.ComputePeriodsStats(ctx, stats.PeriodMonth, StatsOptions{From: day("2024-01-15"), To: day("2024-02-01")})
	mustNoErr(t, err)
	if len(summaries) != 2 {
		t.Fatalf("expected 2 months, got %d", len(summaries))
	}
	jan, feb := summaries[0].Data, summaries[1].Data
	if summaries[0].Date != "2024-01-01" || summaries[0].Type != stats.PeriodMonth {
		t.Fatalf("unexpected first period %s %s", summaries[0].Date, summaries[0].Type)
	}

	if jan.ActiveMembers != 2 || jan.NewMembers != 2 {
		t.Fatalf("january: expected 2 active and 2 new, got %d/%d", jan.ActiveMembers, jan.NewMembers)
	}
	if jan.AttendanceDays != 6 || jan.TicketDays != 3 || jan.DebtDays != 1 || jan.SubscriptionDays != 2 {
		t.Fatalf("january coverage: %+v", jan.CoverageTotals)
	}
	if !jan.TicketAmount.Equal(decimal.NewFromInt(24)) {
		t.Fatalf("expected ticket amount 24, got %s", jan.TicketAmount)
	}
	// bob's subscription covers 2024-01-10..2024-02-09 at 1 per day
	if jan.SubscriptionActiveDays != 22 || !jan.SubscriptionUsageAmount.Equal(decimal.NewFromInt(22)) {
		t.Fatalf("expected 22 subscription days, got %d (%s)", jan.SubscriptionActiveDays, jan.SubscriptionUsageAmount)
	}
	if !jan.ChargesAmount.Equal(decimal.NewFromInt(310)) {
		t.Fatalf("expected 31 days of 10, got %s", jan.ChargesAmount)
	}
	if !jan.IncomeAmount.Equal(decimal.NewFromInt(55)) {
		t.Fatalf("expected january income 55, got %s", jan.IncomeAmount)
	}

	if feb.ActiveMembers != 3 || feb.NewMembers != 1 {
		t.Fatalf("february: expected 3 active and 1 new, got %d/%d", feb.ActiveMembers, feb.NewMembers)
	}
	// alice is already in debt, her half day is debt too
	if feb.DebtDays != 0.5 || feb.TicketDays != 2 {
		t.Fatalf("february coverage: %+v", feb.CoverageTotals)
	}
	if !feb.IncomeAmount.Equal(decimal.NewFromInt(105)) {
		t.Fatalf("expected february income 105, got %s", feb.IncomeAmount)
	}
	if !feb.ChargesAmount.Equal(decimal.NewFromInt(290)) {
		t.Fatalf("expected 29 days of 10, got %s", feb.ChargesAmount)
	}
}

func TestCurrentPeriodIsNeverCached(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	cache := newMapCache()
	clock := &fixedClock{now: day("2024-02-10")}
	agg := newAggregator(t, store, cache, clock)

	excluded, err := agg.ComputePeriodsStats(ctx, stats.PeriodMonth, StatsOptions{From: day("2024-01-01"), To: day("2024-02-29")})
	mustNoErr(t, err)
	if len(excluded) != 1 || excluded[0].Date != "2024-01-01" {
		t.Fatalf("expected only january, got %+v", excluded)
	}

	opts := StatsOptions{From: day("2024-01-01"), To: day("2024-02-29"), IncludesCurrent: true}
	before, err := agg.ComputePeriodsStats(ctx, stats.PeriodMonth, opts)
	mustNoErr(t, err)
	if len(before) != 2 {
		t.Fatalf("expected 2 months with current, got %d", len(before))
	}
	if cache.has("month-2024-02-01") {
		t.Fatalf("current month must not be cached")
	}

	attend(t, store, "bob", 1, "2024-02-12")
	clock.set(day("2024-02-12"))
	after, err := agg.ComputePeriodsStats(ctx, stats.PeriodMonth, opts)
	mustNoErr(t, err)
	if after[1].Data.AttendanceDays == before[1].Data.AttendanceDays {
		t.Fatalf("expected current month recomputed, attendance stayed %v", after[1].Data.AttendanceDays)
	}
	if cache.has("month-2024-02-01") {
		t.Fatalf("current month must not be cached")
	}
}

func TestCurrentPeriodDecidedInUTC(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	// 2024-02-01 00:30 at +02:00 is still 2024-01-31 in UTC
	paris := time.FixedZone("UTC+2", 2*60*60)
	clock := &fixedClock{now: time.Date(2024, 2, 1, 0, 30, 0, 0, paris)}
	agg := newAggregator(t, seedStore(t), cache, clock)

	got, err := agg.ComputePeriodsStats(ctx, stats.PeriodMonth, StatsOptions{From: day("2024-01-01"), To: day("2024-01-31")})
	mustNoErr(t, err)
	if len(got) != 0 || cache.has("month-2024-01-01") {
		t.Fatalf("expected january to still be current, got %+v", got)
	}
	if loc := (SystemClock{}).Now().Location(); loc != time.UTC {
		t.Fatalf("expected system clock in UTC, got %v", loc)
	}
}

func TestFailingDayAbortsOnlyItsPeriod(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: seedStore(t), failOn: day("2024-02-05")}
	cache := newMapCache()
	agg := newAggregator(t, store, cache, &fixedClock{now: day("2024-06-15")})

	summaries, err := agg.ComputePeriodsStats(ctx, stats.PeriodMonth, StatsOptions{From: day("2024-01-01"), To: day("2024-03-31")})
	var perr *PeriodErrors
	if !errors.As(err, &perr) {
		t.Fatalf("expected period errors, got %v", err)
	}
	if keys := perr.Keys(); len(keys) != 1 || keys[0] != "month-2024-02-01" {
		t.Fatalf("unexpected failed periods %v", keys)
	}
	if len(summaries) != 2 || summaries[0].Date != "2024-01-01" || summaries[1].Date != "2024-03-01" {
		t.Fatalf("expected january and march, got %+v", summaries)
	}
	if cache.has("month-2024-02-01") {
		t.Fatalf("failed period must not be cached")
	}
}

func TestInvalidInputRejectedBeforeLedgerAccess(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	agg := newAggregator(t, store, nil, nil)

	_, err := agg.ComputePeriodsStats(ctx, stats.PeriodType("quarter"), StatsOptions{From: day("2024-01-01"), To: day("2024-02-01")})
	if !errors.Is(err, stats.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	_, err = agg.ComputePeriodUsage(ctx, stats.PeriodDay, day("2024-02-01"), day("2024-01-01"))
	if !errors.Is(err, stats.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	_, err = agg.ComputeMemberCoverage(ctx, " ", day("2024-01-01"), day("2024-02-01"))
	if !errors.Is(err, stats.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if store.Reads() != 0 {
		t.Fatalf("expected no ledger reads, got %d", store.Reads())
	}
}

func TestUsageMemberSumEqualsTotal(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	// 47.3 over 29 days does not divide evenly
	mustNoErr(t, store.AddSubscription(ledger.Subscription{
		ID: "s2", MemberID: "dave", StartDate: day("2024-01-31"), Price: 47.3,
	}))
	agg := newAggregator(t, store, nil, &fixedClock{now: day("2024-06-15")})

	var grandTotals []decimal.Decimal
	for _, p := range []stats.PeriodType{stats.PeriodDay, stats.PeriodWeek, stats.PeriodMonth, stats.PeriodYear} {
		summaries, err := agg.ComputePeriodUsage(ctx, p, day("2024-01-01"), day("2024-02-29"))
		mustNoErr(t, err)
		grand := decimal.Zero
		for _, s := range summaries {
			sum := decimal.Zero
			for _, id := range s.Data.Members.IDs() {
				sum = sum.Add(s.Data.Members[id].UsageAmount)
			}
			if !sum.Equal(s.Data.UsageAmount) {
				t.Fatalf("%s %s: member sum %s != total %s", p, s.Date, sum, s.Data.UsageAmount)
			}
			grand = grand.Add(s.Data.UsageAmount)
		}
		grandTotals = append(grandTotals, grand)
	}
	for i := 1; i < len(grandTotals); i++ {
		if !grandTotals[i].Equal(grandTotals[0]) {
			t.Fatalf("usage depends on grouping: %s vs %s", grandTotals[i], grandTotals[0])
		}
	}
	if grandTotals[0].IsZero() {
		t.Fatalf("expected usage")
	}
}

func TestUsageAttributesSubscriptionDaysWithoutAttendance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	mustNoErr(t, store.AddSubscription(ledger.Subscription{
		ID: "s1", MemberID: "erin", StartDate: day("2024-03-10"), Price: 31,
	}))
	mustNoErr(t, store.AddMember(ledger.Member{ID: "erin", FirstName: "Erin", Email: "erin@example.com"}))
	agg := newAggregator(t, store, nil, &fixedClock{now: day("2024-06-15")})

	summaries, err := agg.ComputePeriodUsage(ctx, stats.PeriodMonth, day("2024-03-01"), day("2024-04-30"))
	mustNoErr(t, err)
	march, april := summaries[0].Data, summaries[1].Data
	if march.SubscriptionActiveDays != 22 || april.SubscriptionActiveDays != 9 {
		t.Fatalf("expected 22 and 9 days, got %d and %d", march.SubscriptionActiveDays, april.SubscriptionActiveDays)
	}
	if !march.UsageAmount.Add(april.UsageAmount).Equal(decimal.NewFromInt(31)) {
		t.Fatalf("expected full price attributed, got %s", march.UsageAmount.Add(april.UsageAmount))
	}
	erin := march.Members["erin"]
	if erin == nil || erin.Name != "Erin" || erin.Email != "erin@example.com" {
		t.Fatalf("expected labelled member, got %+v", erin)
	}
	if erin.AttendanceDays != 0 {
		t.Fatalf("expected no attendance, got %v", erin.AttendanceDays)
	}
	if march.ChargedDays != 31 {
		t.Fatalf("expected 31 charged days, got %d", march.ChargedDays)
	}
}

func TestComputePeriodIncome(t *testing.T) {
	ctx := context.Background()
	agg := newAggregator(t, seedStore(t), nil, nil)

	summaries, err := agg.ComputePeriodIncome(ctx, stats.PeriodWeek, day("2024-01-29"), day("2024-02-04"))
	mustNoErr(t, err)
	if len(summaries) != 1 {
		t.Fatalf("expected one week, got %d", len(summaries))
	}
	income := summaries[0].Data
	if income.TicketOrders != 1 || income.TicketsQuantity != 10 || income.Memberships != 1 || income.Subscriptions != 0 {
		t.Fatalf("unexpected income %+v", income)
	}
	if !income.TotalAmount.Equal(decimal.NewFromInt(105)) {
		t.Fatalf("expected 105, got %s", income.TotalAmount)
	}
}

func TestComputePeriodAttendance(t *testing.T) {
	ctx := context.Background()
	agg := newAggregator(t, seedStore(t), nil, nil)

	summaries, err := agg.ComputePeriodAttendance(ctx, stats.PeriodMonth, day("2024-01-01"), day("2024-01-31"))
	mustNoErr(t, err)
	data := summaries[0].Data
	if len(data.Members) != 2 {
		t.Fatalf("expected alice and bob, got %d members", len(data.Members))
	}
	alice := data.Members["alice"]
	if alice.Name != "Alice Martin" || alice.TicketDays != 3 || alice.DebtDays != 1 {
		t.Fatalf("unexpected alice %+v", alice)
	}
	bob := data.Members["bob"]
	if bob.SubscriptionDays != 2 || !bob.SubscriptionAmount.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected bob %+v", bob)
	}
	if data.AttendanceDays != 6 {
		t.Fatalf("expected 6 attendance days, got %v", data.AttendanceDays)
	}
}

func TestComputeMemberCoverage(t *testing.T) {
	ctx := context.Background()
	agg := newAggregator(t, seedStore(t), nil, nil)

	report, err := agg.ComputeMemberCoverage(ctx, "alice", day("2024-01-05"), day("2024-02-01"))
	mustNoErr(t, err)
	if len(report.Days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(report.Days))
	}
	if report.OpeningBalance != 1 {
		t.Fatalf("expected opening balance 1, got %v", report.OpeningBalance)
	}
	if report.ClosingBalance != -1.5 {
		t.Fatalf("expected closing balance -1.5, got %v", report.ClosingBalance)
	}
	if report.AccumulatedDebt != 1.5 || report.DebtDays != 1.5 {
		t.Fatalf("expected debt 1.5, got %v/%v", report.AccumulatedDebt, report.DebtDays)
	}
	if report.Name != "Alice Martin" {
		t.Fatalf("expected label, got %q", report.Name)
	}
}
