package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
)

const (
	defaultActivityTable      = "member_activity"
	defaultTicketOrdersTable  = "ticket_orders"
	defaultSubscriptionsTable = "subscriptions"
	defaultMembershipsTable   = "memberships"
	defaultMembersTable       = "members"
)

var _ ledger.Store = (*Store)(nil)

// Store reads the coworking ledgers from Postgres.
type Store struct {
	db                 *sql.DB
	activityTable      string
	ticketOrdersTable  string
	subscriptionsTable string
	membershipsTable   string
	membersTable       string
}

// Option configures the store.
type Option func(*Store)

// WithActivityTable overrides the attendance table name.
func WithActivityTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.activityTable = table
		}
	}
}

// WithTicketOrdersTable overrides the ticket orders table name.
func WithTicketOrdersTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.ticketOrdersTable = table
		}
	}
}

// WithSubscriptionsTable overrides the subscriptions table name.
func WithSubscriptionsTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.subscriptionsTable = table
		}
	}
}

// WithMembershipsTable overrides the memberships table name.
func WithMembershipsTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.membershipsTable = table
		}
	}
}

// WithMembersTable overrides the members table name.
func WithMembersTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.membersTable = table
		}
	}
}

// NewStore constructs a Store using the default table names.
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:                 db,
		activityTable:      defaultActivityTable,
		ticketOrdersTable:  defaultTicketOrdersTable,
		subscriptionsTable: defaultSubscriptionsTable,
		membershipsTable:   defaultMembershipsTable,
		membersTable:       defaultMembersTable,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return errors.New("ledger postgres: nil db")
	}
	return nil
}

// ListActivityByDate returns the non-zero attendance of every member on day.
func (s *Store) ListActivityByDate(ctx context.Context, day time.Time) ([]ledger.MemberActivity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
SELECT member_id, date, value::float8
FROM %s
WHERE date = $1 AND value > 0
ORDER BY member_id ASC`, s.activityTable)
	return s.queryActivity(ctx, query, ledger.TruncateDay(day))
}

// ListActivityByMember returns the attendance of a member sorted by date.
func (s *Store) ListActivityByMember(ctx context.Context, memberID string) ([]ledger.MemberActivity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if memberID == "" {
		return nil, ledger.ErrEmptyMemberID
	}
	query := fmt.Sprintf(`
SELECT member_id, date, value::float8
FROM %s
WHERE member_id = $1 AND value > 0
ORDER BY date ASC`, s.activityTable)
	return s.queryActivity(ctx, query, memberID)
}

func (s *Store) queryActivity(ctx context.Context, query string, arg any) ([]ledger.MemberActivity, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.MemberActivity
	for rows.Next() {
		var record ledger.MemberActivity
		if err := rows.Scan(&record.MemberID, &record.Date, &record.Value); err != nil {
			return nil, err
		}
		record.Date = ledger.TruncateDay(record.Date.UTC())
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetMember returns a member profile, or nil when unknown.
func (s *Store) GetMember(ctx context.Context, memberID string) (*ledger.Member, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if memberID == "" {
		return nil, ledger.ErrEmptyMemberID
	}
	query := fmt.Sprintf(`
SELECT id, first_name, last_name, email, created_at
FROM %s
WHERE id = $1
LIMIT 1`, s.membersTable)

	var m ledger.Member
	var createdAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, memberID).Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		m.CreatedAt = createdAt.Time.UTC()
	}
	return &m, nil
}
