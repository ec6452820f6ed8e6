package application

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
)

var validate = validator.New()

// StatsOptions selects the periods returned by ComputePeriodsStats.
type StatsOptions struct {
	From time.Time
	To   time.Time
	// IncludesCurrent returns in-progress periods too. They are computed on
	// every call and never cached. Defaults to false.
	IncludesCurrent bool
}

// Query is a validated period query.
type Query struct {
	PeriodType stats.PeriodType
	From       time.Time
	To         time.Time
}

type queryInput struct {
	PeriodType string `validate:"required,oneof=day week month year"`
	From       string `validate:"required,datetime=2006-01-02"`
	To         string `validate:"required,datetime=2006-01-02"`
}

// ParseQuery validates raw query parameters. Every failure wraps
// stats.ErrInvalidInput.
func ParseQuery(periodType, from, to string) (Query, error) {
	in := queryInput{
		PeriodType: strings.ToLower(strings.TrimSpace(periodType)),
		From:       strings.TrimSpace(from),
		To:         strings.TrimSpace(to),
	}
	if err := validate.Struct(in); err != nil {
		return Query{}, fmt.Errorf("%w: %v", stats.ErrInvalidInput, err)
	}
	p, err := stats.ParsePeriodType(in.PeriodType)
	if err != nil {
		return Query{}, err
	}
	fromDay, err := ledger.ParseDate(in.From)
	if err != nil {
		return Query{}, fmt.Errorf("%w: %w", stats.ErrInvalidInput, err)
	}
	toDay, err := ledger.ParseDate(in.To)
	if err != nil {
		return Query{}, fmt.Errorf("%w: %w", stats.ErrInvalidInput, err)
	}
	if fromDay.After(toDay) {
		return Query{}, fmt.Errorf("%w: %w", stats.ErrInvalidInput, stats.ErrInvalidRange)
	}
	return Query{PeriodType: p, From: fromDay, To: toDay}, nil
}

// Options converts the query to StatsOptions.
func (q Query) Options(includesCurrent bool) StatsOptions {
	return StatsOptions{From: q.From, To: q.To, IncludesCurrent: includesCurrent}
}
