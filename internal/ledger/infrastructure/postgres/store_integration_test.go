package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	"github.com/coworking-metz/tickets-backend-sub000/migrations"
)

func TestStoreReadsLedger(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	ctx := context.Background()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("dialect: %v", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	const member = "it-ledger-member"
	cleanup := func() {
		for _, table := range []string{"member_activity", "ticket_orders", "subscriptions", "memberships"} {
			_, _ = db.ExecContext(ctx, "DELETE FROM "+table+" WHERE member_id = $1", member)
		}
		_, _ = db.ExecContext(ctx, "DELETE FROM members WHERE id = $1", member)
	}
	cleanup()
	defer cleanup()

	stmts := []string{
		`INSERT INTO members (id, first_name, last_name, email) VALUES ('it-ledger-member', 'Ada', 'Lovelace', 'ada@example.org')`,
		`INSERT INTO member_activity (member_id, date, value) VALUES ('it-ledger-member', '2024-01-31', 1), ('it-ledger-member', '2024-02-01', 0.5)`,
		`INSERT INTO ticket_orders (id, member_id, purchase_date, tickets_quantity, price) VALUES ('it-order-1', 'it-ledger-member', '2024-01-30', 10, 80)`,
		`INSERT INTO subscriptions (id, member_id, start_date, price) VALUES ('it-sub-1', 'it-ledger-member', '2024-01-31', 29)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	store := NewStore(db)
	activity, err := store.ListActivityByMember(ctx, member)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(activity) != 2 || activity[1].Value != 0.5 {
		t.Fatalf("unexpected activity: %+v", activity)
	}

	orders, err := store.ListTicketOrdersByMember(ctx, member)
	if err != nil || len(orders) != 1 || orders[0].TicketsQuantity != 10 {
		t.Fatalf("unexpected orders: %+v, %v", orders, err)
	}

	active, err := store.ListActiveSubscriptionsByDate(ctx, ledger.MustParseDate("2024-02-28"))
	if err != nil {
		t.Fatalf("active subscriptions: %v", err)
	}
	found := false
	for _, sub := range active {
		if sub.ID == "it-sub-1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected subscription active on 2024-02-28")
	}

	purchased, err := store.ListSubscriptionsByDate(ctx, ledger.MustParseDate("2024-01-31"))
	if err != nil || len(purchased) == 0 {
		t.Fatalf("expected subscription purchased on its start date, got %+v, %v", purchased, err)
	}

	m, err := store.GetMember(ctx, member)
	if err != nil || m == nil || m.DisplayName() != "Ada Lovelace" {
		t.Fatalf("unexpected member: %+v, %v", m, err)
	}
}
