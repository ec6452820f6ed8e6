package application

import (
	"errors"
	"testing"

	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
)

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery("Week", "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.PeriodType != stats.PeriodWeek {
		t.Fatalf("expected week, got %s", q.PeriodType)
	}
	opts := q.Options(false)
	if !opts.From.Equal(q.From) || opts.IncludesCurrent {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestParseQueryRejectsBadInput(t *testing.T) {
	cases := []struct {
		name             string
		period, from, to string
	}{
		{"unknown period", "quarter", "2024-01-01", "2024-02-01"},
		{"malformed from", "day", "2024/01/01", "2024-02-01"},
		{"missing to", "day", "2024-01-01", ""},
		{"inverted range", "month", "2024-03-01", "2024-02-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseQuery(tc.period, tc.from, tc.to)
			if !errors.Is(err, stats.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}
