package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
)

var _ ledger.Store = (*Store)(nil)

// Store is an in-memory ledger for demo/testing.
// It counts read calls so tests can assert that cached results skip the ledger.
type Store struct {
	mu sync.RWMutex

	activity      map[string]map[string]ledger.MemberActivity // member -> date -> record
	tickets       map[string]ledger.TicketOrder
	subscriptions map[string]ledger.Subscription
	memberships   map[string]ledger.Membership
	members       map[string]ledger.Member

	reads atomic.Int64
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		activity:      make(map[string]map[string]ledger.MemberActivity),
		tickets:       make(map[string]ledger.TicketOrder),
		subscriptions: make(map[string]ledger.Subscription),
		memberships:   make(map[string]ledger.Membership),
		members:       make(map[string]ledger.Member),
	}
}

// Reads returns the number of read calls served so far.
func (s *Store) Reads() int64 { return s.reads.Load() }

// SetActivity upserts a (member, date) attendance record. A zero value deletes it.
func (s *Store) SetActivity(activity ledger.MemberActivity) error {
	activity.Date = ledger.TruncateDay(activity.Date)
	if err := activity.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byDate := s.activity[activity.MemberID]
	if byDate == nil {
		byDate = make(map[string]ledger.MemberActivity)
		s.activity[activity.MemberID] = byDate
	}
	key := ledger.FormatDate(activity.Date)
	if activity.Value == 0 {
		delete(byDate, key)
		return nil
	}
	byDate[key] = activity
	return nil
}

// AddTicketOrder stores a ticket order (overwrites by id).
func (s *Store) AddTicketOrder(order ledger.TicketOrder) error {
	order.PurchaseDate = ledger.TruncateDay(order.PurchaseDate)
	if err := order.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.tickets[order.ID] = order
	s.mu.Unlock()
	return nil
}

// AddSubscription stores a subscription (overwrites by id).
func (s *Store) AddSubscription(sub ledger.Subscription) error {
	sub.StartDate = ledger.TruncateDay(sub.StartDate)
	if err := sub.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.subscriptions[sub.ID] = sub
	s.mu.Unlock()
	return nil
}

// AddMembership stores a membership (overwrites by id).
func (s *Store) AddMembership(m ledger.Membership) error {
	if m.ID == "" {
		return ledger.ErrEmptyID
	}
	if m.MemberID == "" {
		return ledger.ErrEmptyMemberID
	}
	s.mu.Lock()
	s.memberships[m.ID] = m
	s.mu.Unlock()
	return nil
}

// AddMember stores a member profile.
func (s *Store) AddMember(m ledger.Member) error {
	if m.ID == "" {
		return ledger.ErrEmptyMemberID
	}
	s.mu.Lock()
	s.members[m.ID] = m
	s.mu.Unlock()
	return nil
}

// ListActivityByDate returns the non-zero attendance of every member on day.
func (s *Store) ListActivityByDate(ctx context.Context, day time.Time) ([]ledger.MemberActivity, error) {
	_ = ctx
	s.reads.Add(1)
	key := ledger.FormatDate(ledger.TruncateDay(day))

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []ledger.MemberActivity
	for _, byDate := range s.activity {
		if record, ok := byDate[key]; ok {
			result = append(result, record)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MemberID < result[j].MemberID })
	return result, nil
}

// ListActivityByMember returns the attendance of a member sorted by date.
func (s *Store) ListActivityByMember(ctx context.Context, memberID string) ([]ledger.MemberActivity, error) {
	_ = ctx
	s.reads.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	byDate := s.activity[memberID]
	result := make([]ledger.MemberActivity, 0, len(byDate))
	for _, record := range byDate {
		result = append(result, record)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// ListTicketOrdersByMember returns the orders of a member sorted by purchase date.
func (s *Store) ListTicketOrdersByMember(ctx context.Context, memberID string) ([]ledger.TicketOrder, error) {
	_ = ctx
	s.reads.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []ledger.TicketOrder
	for _, order := range s.tickets {
		if order.MemberID == memberID {
			result = append(result, order)
		}
	}
	sortTicketOrders(result)
	return result, nil
}

// ListTicketOrdersByDate returns orders purchased on day.
func (s *Store) ListTicketOrdersByDate(ctx context.Context, day time.Time) ([]ledger.TicketOrder, error) {
	_ = ctx
	s.reads.Add(1)
	day = ledger.TruncateDay(day)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []ledger.TicketOrder
	for _, order := range s.tickets {
		if order.PurchaseDate.Equal(day) {
			result = append(result, order)
		}
	}
	sortTicketOrders(result)
	return result, nil
}

// ListSubscriptionsByMember returns the subscriptions of a member sorted by start date.
func (s *Store) ListSubscriptionsByMember(ctx context.Context, memberID string) ([]ledger.Subscription, error) {
	_ = ctx
	s.reads.Add(1)
	return s.filterSubscriptions(func(sub ledger.Subscription) bool { return sub.MemberID == memberID }), nil
}

// ListActiveSubscriptionsByDate returns subscriptions whose window covers day.
func (s *Store) ListActiveSubscriptionsByDate(ctx context.Context, day time.Time) ([]ledger.Subscription, error) {
	_ = ctx
	s.reads.Add(1)
	return s.filterSubscriptions(func(sub ledger.Subscription) bool { return sub.Covers(day) }), nil
}

// ListSubscriptionsByDate returns subscriptions purchased on day.
func (s *Store) ListSubscriptionsByDate(ctx context.Context, day time.Time) ([]ledger.Subscription, error) {
	_ = ctx
	s.reads.Add(1)
	day = ledger.TruncateDay(day)
	return s.filterSubscriptions(func(sub ledger.Subscription) bool { return sub.PurchasedOn().Equal(day) }), nil
}

// ListMembershipsByDate returns memberships purchased on day.
func (s *Store) ListMembershipsByDate(ctx context.Context, day time.Time) ([]ledger.Membership, error) {
	_ = ctx
	s.reads.Add(1)
	day = ledger.TruncateDay(day)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []ledger.Membership
	for _, m := range s.memberships {
		if m.PurchasedOn().Equal(day) {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GetMember returns a member profile, or nil when unknown.
func (s *Store) GetMember(ctx context.Context, memberID string) (*ledger.Member, error) {
	_ = ctx
	s.reads.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *Store) filterSubscriptions(keep func(ledger.Subscription) bool) []ledger.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []ledger.Subscription
	for _, sub := range s.subscriptions {
		if keep(sub) {
			result = append(result, sub)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].StartDate.Before(result[j].StartDate)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func sortTicketOrders(orders []ledger.TicketOrder) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].PurchaseDate.Equal(orders[j].PurchaseDate) {
			return orders[i].PurchaseDate.Before(orders[j].PurchaseDate)
		}
		return orders[i].ID < orders[j].ID
	})
}
