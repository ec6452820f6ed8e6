package ledger

import (
	"context"
	"time"
)

// ActivityReader reads attendance records.
type ActivityReader interface {
	ListActivityByDate(ctx context.Context, day time.Time) ([]MemberActivity, error)
	ListActivityByMember(ctx context.Context, memberID string) ([]MemberActivity, error)
}

// TicketReader reads ticket orders.
type TicketReader interface {
	ListTicketOrdersByMember(ctx context.Context, memberID string) ([]TicketOrder, error)
	ListTicketOrdersByDate(ctx context.Context, day time.Time) ([]TicketOrder, error)
}

// SubscriptionReader reads subscriptions.
type SubscriptionReader interface {
	ListSubscriptionsByMember(ctx context.Context, memberID string) ([]Subscription, error)
	// ListActiveSubscriptionsByDate returns subscriptions whose window covers day.
	ListActiveSubscriptionsByDate(ctx context.Context, day time.Time) ([]Subscription, error)
	// ListSubscriptionsByDate returns subscriptions purchased on day.
	ListSubscriptionsByDate(ctx context.Context, day time.Time) ([]Subscription, error)
}

// MembershipReader reads membership purchases.
type MembershipReader interface {
	ListMembershipsByDate(ctx context.Context, day time.Time) ([]Membership, error)
}

// MemberDirectory resolves member profiles. Unknown members yield (nil, nil).
type MemberDirectory interface {
	GetMember(ctx context.Context, memberID string) (*Member, error)
}

// Store bundles every ledger read used by the statistics engine.
type Store interface {
	ActivityReader
	TicketReader
	SubscriptionReader
	MembershipReader
	MemberDirectory
}
