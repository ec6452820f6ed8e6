package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/observability/metrics"
	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
)

// ComputeMemberCoverage returns the day-by-day coverage of one member over
// [from, to] with the ticket balance around the range and the debt
// accumulated up to to.
func (a *PeriodAggregator) ComputeMemberCoverage(ctx context.Context, memberID string, from, to time.Time) (report *stats.MemberCoverageReport, err error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, fmt.Errorf("%w: %w", stats.ErrInvalidInput, ledger.ErrEmptyMemberID)
	}
	from = ledger.TruncateDay(from)
	to = ledger.TruncateDay(to)
	if from.After(to) {
		return nil, fmt.Errorf("%w: %w", stats.ErrInvalidInput, stats.ErrInvalidRange)
	}

	start := time.Now()
	defer func() {
		metrics.ObservePeriodCompute(metrics.KindMemberCoverage, metrics.ResultOf(err), time.Since(start))
	}()

	timeline, err := a.resolver.Timeline(ctx, memberID)
	if err != nil {
		return nil, err
	}
	member, err := a.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("get member %s: %w", memberID, err)
	}

	report = &stats.MemberCoverageReport{
		MemberID:       memberID,
		From:           ledger.FormatDate(from),
		To:             ledger.FormatDate(to),
		Days:           timeline.Between(from, to),
		OpeningBalance: timeline.BalanceAfter(from.AddDate(0, 0, -1)),
		ClosingBalance: timeline.BalanceAfter(to),
	}
	if member != nil {
		report.Name = member.DisplayName()
		report.Email = member.Email
	}
	for _, day := range report.Days {
		report.AttendanceDays += day.Value
		report.CoverageTotals.Add(day)
	}
	for _, day := range timeline.Results() {
		if day.Date.After(to) {
			break
		}
		report.AccumulatedDebt += day.DebtValue()
	}
	return report, nil
}
