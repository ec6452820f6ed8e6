package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/observability/logger"
	"github.com/coworking-metz/tickets-backend-sub000/internal/observability/metrics"
	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain/coverage"
)

// DefaultWorkers bounds concurrent ledger reads.
const DefaultWorkers = 8

// PeriodAggregator computes usage, income and attendance statistics per
// calendar period.
type PeriodAggregator struct {
	store    LedgerStore
	resolver *coverage.Resolver
	charges  ChargeAllocator
	cache    Cache
	clock    Clock
	workers  int
	logger   *slog.Logger
}

// Option configures a PeriodAggregator.
type Option func(*PeriodAggregator)

// WithWorkers overrides DefaultWorkers.
func WithWorkers(n int) Option {
	return func(a *PeriodAggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithLogger sets the logger used to report failed periods.
func WithLogger(l *slog.Logger) Option {
	return func(a *PeriodAggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewPeriodAggregator constructs the aggregator. A nil cache disables
// caching, nil charges allocate nothing and a nil clock uses SystemClock.
func NewPeriodAggregator(
	store LedgerStore,
	rates coverage.RateProvider,
	charges ChargeAllocator,
	cache Cache,
	clock Clock,
	opts ...Option,
) (*PeriodAggregator, error) {
	if store == nil {
		return nil, errors.New("period aggregator: nil ledger store")
	}
	if rates == nil {
		return nil, errors.New("period aggregator: nil rate provider")
	}
	if charges == nil {
		charges = noCharges{}
	}
	if cache == nil {
		cache = noCache{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	resolver, err := coverage.NewResolver(store, store, store, rates)
	if err != nil {
		return nil, err
	}
	a := &PeriodAggregator{
		store:    store,
		resolver: resolver,
		charges:  charges,
		cache:    cache,
		clock:    clock,
		workers:  DefaultWorkers,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// computeAll computes periods concurrently and calls done for each success.
// Failures are collected per period; the other periods keep computing.
func (a *PeriodAggregator) computeAll(
	ctx context.Context,
	kind string,
	periods []stats.Period,
	n needs,
	done func(i int, period stats.Period, data *periodData, req *request) error,
) *PeriodErrors {
	req := a.newRequest(ctx)
	errs := make([]error, len(periods))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, period := range periods {
		g.Go(func() error {
			start := time.Now()
			data, err := req.computePeriod(ctx, period, n)
			if err == nil {
				err = done(i, period, data, req)
			}
			metrics.ObservePeriodCompute(kind, metrics.ResultOf(err), time.Since(start))
			if err != nil {
				a.logger.Warn("period computation failed", "kind", kind, "period", period.Key(), "err", err)
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	var failures []PeriodError
	for i, err := range errs {
		if err != nil {
			failures = append(failures, PeriodError{Key: periods[i].Key(), Err: err})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &PeriodErrors{Failures: failures}
}

// ComputePeriodsStats returns the statistics of every period of [From, To].
// Closed periods are served from the cache when present and cached once
// computed; current periods are recomputed on every call and skipped unless
// IncludesCurrent is set. When some periods fail, the others are returned
// together with a *PeriodErrors.
func (a *PeriodAggregator) ComputePeriodsStats(ctx context.Context, periodType stats.PeriodType, opts StatsOptions) ([]stats.PeriodSummary, error) {
	periods, err := stats.BuildPeriods(periodType, opts.From, opts.To)
	if err != nil {
		return nil, err
	}
	today := a.clock.Now().UTC()

	results := make([]*stats.PeriodSummary, len(periods))
	var pending []stats.Period
	var pendingIdx []int
	for i, period := range periods {
		current := period.IsCurrent(today)
		if current && !opts.IncludesCurrent {
			continue
		}
		if !current {
			if summary, ok := a.cache.Get(ctx, period.Key()); ok {
				results[i] = &summary
				continue
			}
		}
		pending = append(pending, period)
		pendingIdx = append(pendingIdx, i)
	}

	perr := a.computeAll(ctx, metrics.KindStats, pending, statsNeeds,
		func(i int, period stats.Period, data *periodData, _ *request) error {
			summary := statsSummary(period, data)
			if !period.IsCurrent(today) {
				a.cache.Set(ctx, period.Key(), summary)
			}
			results[pendingIdx[i]] = &summary
			return nil
		})

	out := make([]stats.PeriodSummary, 0, len(periods))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	if perr != nil {
		return out, perr
	}
	return out, nil
}

// ComputePeriodUsage returns per-member usage and charges for every period
// of [from, to], current period included.
func (a *PeriodAggregator) ComputePeriodUsage(ctx context.Context, periodType stats.PeriodType, from, to time.Time) ([]stats.UsagePeriodSummary, error) {
	periods, err := stats.BuildPeriods(periodType, from, to)
	if err != nil {
		return nil, err
	}
	results := make([]*stats.UsagePeriodSummary, len(periods))
	perr := a.computeAll(ctx, metrics.KindUsage, periods, usageNeeds,
		func(i int, period stats.Period, data *periodData, req *request) error {
			for _, id := range data.members.IDs() {
				member, err := req.member(id)
				if err != nil {
					return err
				}
				data.members[id].Label(member)
			}
			results[i] = &stats.UsagePeriodSummary{
				Date: ledger.FormatDate(period.Start),
				Type: period.Type,
				Data: stats.UsageData{
					UsageTotals:   data.members.Total(),
					ChargesAmount: data.charges,
					ChargedDays:   data.chargedDays,
					Members:       data.members,
				},
			}
			return nil
		})
	out := collect(results)
	if perr != nil {
		return out, perr
	}
	return out, nil
}

// ComputePeriodIncome returns purchase totals for every period of [from, to].
func (a *PeriodAggregator) ComputePeriodIncome(ctx context.Context, periodType stats.PeriodType, from, to time.Time) ([]stats.IncomePeriodSummary, error) {
	periods, err := stats.BuildPeriods(periodType, from, to)
	if err != nil {
		return nil, err
	}
	results := make([]*stats.IncomePeriodSummary, len(periods))
	perr := a.computeAll(ctx, metrics.KindIncome, periods, incomeNeeds,
		func(i int, period stats.Period, data *periodData, _ *request) error {
			results[i] = &stats.IncomePeriodSummary{
				Date: ledger.FormatDate(period.Start),
				Type: period.Type,
				Data: data.income,
			}
			return nil
		})
	out := collect(results)
	if perr != nil {
		return out, perr
	}
	return out, nil
}

// ComputePeriodAttendance lists, for every period of [from, to], the members
// who attended and how their days were covered.
func (a *PeriodAggregator) ComputePeriodAttendance(ctx context.Context, periodType stats.PeriodType, from, to time.Time) ([]stats.AttendancePeriodSummary, error) {
	periods, err := stats.BuildPeriods(periodType, from, to)
	if err != nil {
		return nil, err
	}
	results := make([]*stats.AttendancePeriodSummary, len(periods))
	perr := a.computeAll(ctx, metrics.KindAttendance, periods, attendanceNeeds,
		func(i int, period stats.Period, data *periodData, req *request) error {
			attendance := stats.AttendanceData{Members: make(map[string]*stats.MemberAttendance)}
			for _, id := range data.members.IDs() {
				usage := data.members[id]
				if usage.AttendanceDays == 0 {
					continue
				}
				member, err := req.member(id)
				if err != nil {
					return err
				}
				usage.Label(member)
				attendance.Members[id] = &stats.MemberAttendance{
					MemberID:       id,
					Name:           usage.Name,
					Email:          usage.Email,
					AttendanceDays: usage.AttendanceDays,
					CoverageTotals: usage.CoverageTotals,
				}
				attendance.AttendanceDays += usage.AttendanceDays
				attendance.CoverageTotals.Merge(usage.CoverageTotals)
			}
			results[i] = &stats.AttendancePeriodSummary{
				Date: ledger.FormatDate(period.Start),
				Type: period.Type,
				Data: attendance,
			}
			return nil
		})
	out := collect(results)
	if perr != nil {
		return out, perr
	}
	return out, nil
}

func statsSummary(period stats.Period, data *periodData) stats.PeriodSummary {
	total := data.members.Total()
	active := 0
	for _, m := range data.members {
		if m.AttendanceDays > 0 {
			active++
		}
	}
	return stats.PeriodSummary{
		Date: ledger.FormatDate(period.Start),
		Type: period.Type,
		Data: stats.StatsData{
			ActiveMembers:           active,
			NewMembers:              len(data.newMembers),
			AttendanceDays:          total.AttendanceDays,
			CoverageTotals:          total.CoverageTotals,
			SubscriptionActiveDays:  total.SubscriptionActiveDays,
			SubscriptionUsageAmount: total.SubscriptionUsageAmount,
			UsageAmount:             total.UsageAmount,
			ChargesAmount:           data.charges,
			IncomeAmount:            data.income.TotalAmount,
		},
	}
}

func collect[T any](results []*T) []T {
	out := make([]T, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
