package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain/coverage"
)

// needs selects the ledger reads of a day computation.
type needs struct {
	activity      bool
	subscriptions bool
	charges       bool
	income        bool
}

var (
	statsNeeds      = needs{activity: true, subscriptions: true, charges: true, income: true}
	usageNeeds      = needs{activity: true, subscriptions: true, charges: true}
	attendanceNeeds = needs{activity: true}
	incomeNeeds     = needs{income: true}
)

// periodData is the associative accumulator of one or more days.
type periodData struct {
	members     stats.MemberUsages
	newMembers  map[string]struct{}
	charges     decimal.Decimal
	chargedDays int
	income      stats.IncomeData
}

func newPeriodData() *periodData {
	return &periodData{
		members:    stats.MemberUsages{},
		newMembers: make(map[string]struct{}),
	}
}

func (p *periodData) merge(other *periodData) {
	if other == nil {
		return
	}
	p.members.Merge(other.members)
	for id := range other.newMembers {
		p.newMembers[id] = struct{}{}
	}
	p.charges = p.charges.Add(other.charges)
	p.chargedDays += other.chargedDays
	p.income.Merge(other.income)
}

type memoTimeline struct {
	once     sync.Once
	timeline *coverage.Timeline
	err      error
}

type memoMember struct {
	once   sync.Once
	member *ledger.Member
	err    error
}

// request memoizes member timelines and profiles for one call. Memoized loads
// run under the call context so a failing period does not poison the entries
// its siblings share.
type request struct {
	agg *PeriodAggregator
	ctx context.Context
	sem *semaphore.Weighted

	mu        sync.Mutex
	timelines map[string]*memoTimeline
	members   map[string]*memoMember
}

func (a *PeriodAggregator) newRequest(ctx context.Context) *request {
	return &request{
		agg:       a,
		ctx:       ctx,
		sem:       semaphore.NewWeighted(int64(a.workers)),
		timelines: make(map[string]*memoTimeline),
		members:   make(map[string]*memoMember),
	}
}

func (r *request) timeline(memberID string) (*coverage.Timeline, error) {
	r.mu.Lock()
	m, ok := r.timelines[memberID]
	if !ok {
		m = &memoTimeline{}
		r.timelines[memberID] = m
	}
	r.mu.Unlock()
	m.once.Do(func() {
		m.timeline, m.err = r.agg.resolver.Timeline(r.ctx, memberID)
	})
	return m.timeline, m.err
}

func (r *request) member(memberID string) (*ledger.Member, error) {
	r.mu.Lock()
	m, ok := r.members[memberID]
	if !ok {
		m = &memoMember{}
		r.members[memberID] = m
	}
	r.mu.Unlock()
	m.once.Do(func() {
		m.member, m.err = r.agg.store.GetMember(r.ctx, memberID)
		if m.err != nil {
			m.err = fmt.Errorf("get member %s: %w", memberID, m.err)
		}
	})
	return m.member, m.err
}

func (r *request) computeDay(ctx context.Context, day time.Time, n needs) (*periodData, error) {
	store := r.agg.store
	data := newPeriodData()

	if n.activity {
		activity, err := store.ListActivityByDate(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("list activity: %w", err)
		}
		for _, a := range activity {
			if ledger.ClampActivityValue(a.Value) == 0 {
				continue
			}
			timeline, err := r.timeline(a.MemberID)
			if err != nil {
				return nil, err
			}
			result, ok := timeline.On(day)
			if !ok {
				continue
			}
			data.members.Get(a.MemberID).AddCoverage(result)
			if first, ok := timeline.FirstActivity(); ok && first.Equal(result.Date) {
				data.newMembers[a.MemberID] = struct{}{}
			}
		}
	}

	if n.subscriptions {
		active, err := store.ListActiveSubscriptionsByDate(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("list active subscriptions: %w", err)
		}
		byMember := make(map[string][]ledger.Subscription)
		for _, s := range active {
			byMember[s.MemberID] = append(byMember[s.MemberID], s)
		}
		for memberID, subs := range byMember {
			if sub, ok := coverage.SelectSubscription(subs, day); ok {
				data.members.Get(memberID).AddSubscriptionDay(coverage.DailyRate(sub))
			}
		}
	}

	if n.charges {
		if share, ok := r.agg.charges.DailyShare(day); ok {
			data.charges = share
			data.chargedDays = 1
		}
	}

	if n.income {
		orders, err := store.ListTicketOrdersByDate(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("list ticket orders: %w", err)
		}
		for _, o := range orders {
			data.income.AddTicketOrder(o)
		}
		subs, err := store.ListSubscriptionsByDate(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		for _, s := range subs {
			data.income.AddSubscription(s)
		}
		memberships, err := store.ListMembershipsByDate(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("list memberships: %w", err)
		}
		for _, m := range memberships {
			data.income.AddMembership(m)
		}
	}
	return data, nil
}

// computePeriod runs the days of a period on the bounded pool. The first
// failing day cancels the remaining days of the same period only.
func (r *request) computePeriod(ctx context.Context, period stats.Period, n needs) (*periodData, error) {
	days := period.Days()
	parts := make([]*periodData, len(days))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.agg.workers)
	for i, day := range days {
		g.Go(func() error {
			if err := r.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer r.sem.Release(1)
			data, err := r.computeDay(gctx, day, n)
			if err != nil {
				return fmt.Errorf("day %s: %w", ledger.FormatDate(day), err)
			}
			parts[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := newPeriodData()
	for _, part := range parts {
		total.merge(part)
	}
	return total, nil
}
