package pricing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain/coverage"
)

const sample = `
periodic_charges:
  - label: rent 2024
    from: "2024-01-01"
    to: "2024-12-31"
    amount: 3660
ticket_rates:
  - from: "2020-01-01"
    price: 8
  - from: "2024-09-01"
    price: 10
`

func TestLoadPricingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	pricing, err := Load(path, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	share, ok := pricing.Charges.DailyShare(ledger.MustParseDate("2024-06-15"))
	if !ok || !share.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected 10 per day, got %s (%v)", share, ok)
	}
	rate, ok := pricing.TicketRateAt(ledger.MustParseDate("2024-09-02"))
	if !ok || !rate.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected rate 10, got %s", rate)
	}
}

func TestLoadWithoutFileUsesFallback(t *testing.T) {
	pricing, err := Load("", 8)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rate, ok := pricing.TicketRateAt(ledger.MustParseDate("2015-03-01"))
	if !ok || !rate.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected fallback rate 8, got %s", rate)
	}
	if _, ok := pricing.Charges.DailyShare(ledger.MustParseDate("2015-03-01")); ok {
		t.Fatalf("expected no charges")
	}
}

func TestParseRejectsMalformedDate(t *testing.T) {
	_, err := Parse(File{PeriodicCharges: []ChargeEntry{{From: "2024-13-01", To: "2024-12-31", Amount: 1}}, FallbackTicketPrice: 8})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestFallbackAppliesBeforeFirstDatedRate(t *testing.T) {
	pricing, err := Parse(File{
		TicketRates:         []RateEntry{{From: "2024-06-01", Price: 8}},
		FallbackTicketPrice: 6,
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rate, ok := pricing.TicketRateAt(ledger.MustParseDate("2024-05-15"))
	if !ok || !rate.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected fallback rate 6 before the first entry, got %s (%v)", rate, ok)
	}
	rate, ok = pricing.TicketRateAt(ledger.MustParseDate("2024-06-01"))
	if !ok || !rate.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected dated rate 8, got %s (%v)", rate, ok)
	}

	day := ledger.MustParseDate("2024-05-15")
	timeline := coverage.BuildTimeline("alice",
		[]ledger.MemberActivity{{MemberID: "alice", Date: day, Value: 1}},
		[]ledger.TicketOrder{{ID: "o1", MemberID: "alice", PurchaseDate: day, TicketsQuantity: 1}},
		nil, pricing)
	result, ok := timeline.On(day)
	if !ok || result.Type != coverage.TypeTicket || !result.Amount.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected ticket day valued at 6, got %+v", result)
	}
}

func TestFallbackSkippedWhenRatesStartAtZeroTime(t *testing.T) {
	pricing, err := Parse(File{
		TicketRates:         []RateEntry{{From: "0001-01-01", Price: 7}, {From: "2024-06-01", Price: 8}},
		FallbackTicketPrice: 6,
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rate, ok := pricing.TicketRateAt(ledger.MustParseDate("2020-01-01"))
	if !ok || !rate.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("expected open-ended rate 7, got %s (%v)", rate, ok)
	}
}

func TestParseRequiresSomeTicketRate(t *testing.T) {
	if _, err := Parse(File{}); err == nil {
		t.Fatalf("expected error without rates or fallback")
	}
}
