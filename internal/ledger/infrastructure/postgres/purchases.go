package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
)

const ticketOrderColumns = `id, member_id, purchase_date, tickets_quantity, price::float8, COALESCE(order_reference, '')`

// ListTicketOrdersByMember returns the orders of a member sorted by purchase date.
func (s *Store) ListTicketOrdersByMember(ctx context.Context, memberID string) ([]ledger.TicketOrder, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if memberID == "" {
		return nil, ledger.ErrEmptyMemberID
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE member_id = $1
ORDER BY purchase_date ASC, id ASC`, ticketOrderColumns, s.ticketOrdersTable)
	return s.queryTicketOrders(ctx, query, memberID)
}

// ListTicketOrdersByDate returns orders purchased on day.
func (s *Store) ListTicketOrdersByDate(ctx context.Context, day time.Time) ([]ledger.TicketOrder, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE purchase_date = $1
ORDER BY id ASC`, ticketOrderColumns, s.ticketOrdersTable)
	return s.queryTicketOrders(ctx, query, ledger.TruncateDay(day))
}

func (s *Store) queryTicketOrders(ctx context.Context, query string, arg any) ([]ledger.TicketOrder, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.TicketOrder
	for rows.Next() {
		var order ledger.TicketOrder
		if err := rows.Scan(
			&order.ID,
			&order.MemberID,
			&order.PurchaseDate,
			&order.TicketsQuantity,
			&order.Price,
			&order.OrderReference,
		); err != nil {
			return nil, err
		}
		order.PurchaseDate = ledger.TruncateDay(order.PurchaseDate.UTC())
		result = append(result, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

const subscriptionColumns = `id, member_id, purchase_date, start_date, price::float8`

// ListSubscriptionsByMember returns the subscriptions of a member sorted by start date.
func (s *Store) ListSubscriptionsByMember(ctx context.Context, memberID string) ([]ledger.Subscription, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if memberID == "" {
		return nil, ledger.ErrEmptyMemberID
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE member_id = $1
ORDER BY start_date ASC, id ASC`, subscriptionColumns, s.subscriptionsTable)
	return s.querySubscriptions(ctx, query, memberID)
}

// ListActiveSubscriptionsByDate returns subscriptions whose window covers day.
// Postgres clamps "+ 1 month" to the end of the target month, like the domain does.
func (s *Store) ListActiveSubscriptionsByDate(ctx context.Context, day time.Time) ([]ledger.Subscription, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE start_date <= $1
	AND (start_date + INTERVAL '1 month' - INTERVAL '1 day')::date >= $1
ORDER BY start_date ASC, id ASC`, subscriptionColumns, s.subscriptionsTable)
	return s.querySubscriptions(ctx, query, ledger.TruncateDay(day))
}

// ListSubscriptionsByDate returns subscriptions purchased on day.
func (s *Store) ListSubscriptionsByDate(ctx context.Context, day time.Time) ([]ledger.Subscription, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE COALESCE(purchase_date, start_date) = $1
ORDER BY id ASC`, subscriptionColumns, s.subscriptionsTable)
	return s.querySubscriptions(ctx, query, ledger.TruncateDay(day))
}

func (s *Store) querySubscriptions(ctx context.Context, query string, arg any) ([]ledger.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Subscription
	for rows.Next() {
		var sub ledger.Subscription
		var purchaseDate sql.NullTime
		if err := rows.Scan(&sub.ID, &sub.MemberID, &purchaseDate, &sub.StartDate, &sub.Price); err != nil {
			return nil, err
		}
		sub.StartDate = ledger.TruncateDay(sub.StartDate.UTC())
		if purchaseDate.Valid {
			sub.PurchaseDate = ledger.TruncateDay(purchaseDate.Time.UTC())
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListMembershipsByDate returns memberships purchased on day.
func (s *Store) ListMembershipsByDate(ctx context.Context, day time.Time) ([]ledger.Membership, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
SELECT id, member_id, purchase_date, membership_start, price::float8
FROM %s
WHERE COALESCE(purchase_date, membership_start) = $1
ORDER BY id ASC`, s.membershipsTable)

	rows, err := s.db.QueryContext(ctx, query, ledger.TruncateDay(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Membership
	for rows.Next() {
		var m ledger.Membership
		var purchaseDate sql.NullTime
		if err := rows.Scan(&m.ID, &m.MemberID, &purchaseDate, &m.MembershipStart, &m.Price); err != nil {
			return nil, err
		}
		m.MembershipStart = ledger.TruncateDay(m.MembershipStart.UTC())
		if purchaseDate.Valid {
			m.PurchaseDate = ledger.TruncateDay(purchaseDate.Time.UTC())
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
