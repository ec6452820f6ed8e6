package charges

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
)

func TestAllocatorDailyShareLeapYear(t *testing.T) {
	allocator, err := NewAllocator([]Charge{{
		From:   ledger.MustParseDate("2024-01-01"),
		To:     ledger.MustParseDate("2024-12-31"),
		Amount: decimal.NewFromInt(3660),
	}})
	if err != nil {
		t.Fatalf("new allocator: %v", err)
	}
	share, ok := allocator.DailyShare(ledger.MustParseDate("2024-06-15"))
	if !ok {
		t.Fatalf("expected a share inside the range")
	}
	if !share.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected 3660/366 = 10, got %s", share)
	}
}

func TestAllocatorOutsideRanges(t *testing.T) {
	allocator, err := NewAllocator([]Charge{
		{From: ledger.MustParseDate("2024-01-01"), To: ledger.MustParseDate("2024-01-31"), Amount: decimal.NewFromInt(310)},
		{From: ledger.MustParseDate("2024-03-01"), To: ledger.MustParseDate("2024-03-31"), Amount: decimal.NewFromInt(620)},
	})
	if err != nil {
		t.Fatalf("new allocator: %v", err)
	}
	for _, day := range []string{"2023-12-31", "2024-02-10", "2024-04-01"} {
		if _, ok := allocator.DailyShare(ledger.MustParseDate(day)); ok {
			t.Fatalf("expected no share on %s", day)
		}
	}
	share, ok := allocator.DailyShare(ledger.MustParseDate("2024-03-31"))
	if !ok || !share.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected 20 on last day of range, got %s (%v)", share, ok)
	}
}

func TestAllocatorRejectsOverlap(t *testing.T) {
	_, err := NewAllocator([]Charge{
		{From: ledger.MustParseDate("2024-01-01"), To: ledger.MustParseDate("2024-01-31"), Amount: decimal.NewFromInt(1)},
		{From: ledger.MustParseDate("2024-01-31"), To: ledger.MustParseDate("2024-02-28"), Amount: decimal.NewFromInt(1)},
	})
	if !errors.Is(err, ErrOverlappingRanges) {
		t.Fatalf("expected overlap error, got %v", err)
	}
}

func TestAllocatorRejectsInvertedRange(t *testing.T) {
	_, err := NewAllocator([]Charge{
		{From: ledger.MustParseDate("2024-02-01"), To: ledger.MustParseDate("2024-01-01"), Amount: decimal.NewFromInt(1)},
	})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
}

func TestRateTableLatestFromWins(t *testing.T) {
	table, err := NewRateTable([]TicketRate{
		{From: ledger.MustParseDate("2024-07-01"), Price: decimal.NewFromInt(10)},
		{From: ledger.MustParseDate("2020-01-01"), Price: decimal.NewFromInt(8)},
	})
	if err != nil {
		t.Fatalf("new rate table: %v", err)
	}
	if _, ok := table.TicketRateAt(ledger.MustParseDate("2019-12-31")); ok {
		t.Fatalf("expected no rate before the first entry")
	}
	rate, _ := table.TicketRateAt(ledger.MustParseDate("2024-06-30"))
	if !rate.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected 8, got %s", rate)
	}
	rate, _ = table.TicketRateAt(ledger.MustParseDate("2024-07-01"))
	if !rate.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected 10, got %s", rate)
	}
}
