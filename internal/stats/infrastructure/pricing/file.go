package pricing

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain/charges"
)

// ChargeEntry is one periodic charge of the pricing file.
type ChargeEntry struct {
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Amount float64 `yaml:"amount"`
	Label  string  `yaml:"label"`
}

// RateEntry is one ticket rate of the pricing file.
type RateEntry struct {
	From  string  `yaml:"from"`
	Price float64 `yaml:"price"`
}

// File is the pricing document: operating costs and ticket prices.
type File struct {
	PeriodicCharges []ChargeEntry `yaml:"periodic_charges"`
	TicketRates     []RateEntry   `yaml:"ticket_rates"`
	// FallbackTicketPrice applies to days before the first dated ticket rate.
	FallbackTicketPrice float64 `yaml:"fallback_ticket_price"`
}

// Pricing is the parsed, validated pricing file.
type Pricing struct {
	Charges *charges.Allocator
	Rates   *charges.RateTable
}

// TicketRateAt implements coverage.RateProvider.
func (p *Pricing) TicketRateAt(day time.Time) (decimal.Decimal, bool) {
	return p.Rates.TicketRateAt(day)
}

// Load reads and parses a pricing file. An empty path yields empty tables
// with the given fallback ticket price.
func Load(path string, fallbackTicketPrice float64) (*Pricing, error) {
	doc := File{FallbackTicketPrice: fallbackTicketPrice}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("pricing: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("pricing: parse %s: %w", path, err)
		}
	}
	return Parse(doc)
}

// Parse validates a pricing document.
func Parse(doc File) (*Pricing, error) {
	chargeList := make([]charges.Charge, 0, len(doc.PeriodicCharges))
	for _, entry := range doc.PeriodicCharges {
		from, err := ledger.ParseDate(entry.From)
		if err != nil {
			return nil, fmt.Errorf("pricing: charge %q: %w", entry.Label, err)
		}
		to, err := ledger.ParseDate(entry.To)
		if err != nil {
			return nil, fmt.Errorf("pricing: charge %q: %w", entry.Label, err)
		}
		chargeList = append(chargeList, charges.Charge{From: from, To: to, Amount: decimal.NewFromFloat(entry.Amount)})
	}
	allocator, err := charges.NewAllocator(chargeList)
	if err != nil {
		return nil, fmt.Errorf("pricing: %w", err)
	}

	rateList := make([]charges.TicketRate, 0, len(doc.TicketRates)+1)
	openEnded := false
	for _, entry := range doc.TicketRates {
		from, err := ledger.ParseDate(entry.From)
		if err != nil {
			return nil, fmt.Errorf("pricing: ticket rate: %w", err)
		}
		if from.IsZero() {
			openEnded = true
		}
		rateList = append(rateList, charges.TicketRate{From: from, Price: decimal.NewFromFloat(entry.Price)})
	}
	if doc.FallbackTicketPrice > 0 && !openEnded {
		// the zero time precedes every day
		rateList = append(rateList, charges.TicketRate{Price: decimal.NewFromFloat(doc.FallbackTicketPrice)})
	}
	if len(rateList) == 0 {
		return nil, errors.New("pricing: no ticket rate configured")
	}
	rates, err := charges.NewRateTable(rateList)
	if err != nil {
		return nil, fmt.Errorf("pricing: %w", err)
	}
	return &Pricing{Charges: allocator, Rates: rates}, nil
}
