package coverage

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
)

// Resolver loads a member's ledger history and resolves coverage from it.
type Resolver struct {
	activity      ledger.ActivityReader
	tickets       ledger.TicketReader
	subscriptions ledger.SubscriptionReader
	rates         RateProvider
}

// NewResolver constructs a coverage resolver.
func NewResolver(
	activity ledger.ActivityReader,
	tickets ledger.TicketReader,
	subscriptions ledger.SubscriptionReader,
	rates RateProvider,
) (*Resolver, error) {
	if activity == nil {
		return nil, errors.New("coverage: nil activity reader")
	}
	if tickets == nil {
		return nil, errors.New("coverage: nil ticket reader")
	}
	if subscriptions == nil {
		return nil, errors.New("coverage: nil subscription reader")
	}
	if rates == nil {
		return nil, errors.New("coverage: nil rate provider")
	}
	return &Resolver{
		activity:      activity,
		tickets:       tickets,
		subscriptions: subscriptions,
		rates:         rates,
	}, nil
}

// Timeline fetches the member history and resolves every attended day.
// Unknown members produce an empty timeline.
func (r *Resolver) Timeline(ctx context.Context, memberID string) (*Timeline, error) {
	if memberID == "" {
		return nil, ledger.ErrEmptyMemberID
	}
	activity, err := r.activity.ListActivityByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("coverage: list activity of %s: %w", memberID, err)
	}
	tickets, err := r.tickets.ListTicketOrdersByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("coverage: list tickets of %s: %w", memberID, err)
	}
	subscriptions, err := r.subscriptions.ListSubscriptionsByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("coverage: list subscriptions of %s: %w", memberID, err)
	}
	return BuildTimeline(memberID, activity, tickets, subscriptions, r.rates), nil
}

// Resolve returns the coverage of a single day, nil when the member did not
// attend.
func (r *Resolver) Resolve(ctx context.Context, memberID string, day time.Time) (*Result, error) {
	timeline, err := r.Timeline(ctx, memberID)
	if err != nil {
		return nil, err
	}
	result, ok := timeline.On(day)
	if !ok {
		return nil, nil
	}
	return &result, nil
}
