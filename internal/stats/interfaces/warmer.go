package interfaces

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/observability/logger"
	"github.com/coworking-metz/tickets-backend-sub000/internal/observability/metrics"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/application"
	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
)

// StatsComputer computes period statistics.
type StatsComputer interface {
	ComputePeriodsStats(ctx context.Context, periodType stats.PeriodType, opts application.StatsOptions) ([]stats.PeriodSummary, error)
}

// CacheWarmer computes closed periods once a day so that later queries are
// served from the stats cache.
type CacheWarmer struct {
	computer    StatsComputer
	periodTypes []stats.PeriodType
	since       time.Time
	dailyAt     string
	clock       application.Clock
	logger      *slog.Logger
}

// NewCacheWarmer constructs a CacheWarmer. A zero since starts on January 1
// of the previous year.
func NewCacheWarmer(
	computer StatsComputer,
	periodTypes []stats.PeriodType,
	since time.Time,
	dailyAt string,
	clock application.Clock,
	log *slog.Logger,
) (*CacheWarmer, error) {
	if computer == nil {
		return nil, errors.New("cache warmer: nil stats computer")
	}
	for _, p := range periodTypes {
		if !p.IsValid() {
			return nil, fmt.Errorf("cache warmer: %w %q", stats.ErrInvalidPeriodType, p)
		}
	}
	if _, _, err := parseDailyAt(dailyAt); err != nil {
		return nil, fmt.Errorf("cache warmer: daily_at %q: %w", dailyAt, err)
	}
	if clock == nil {
		clock = application.SystemClock{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &CacheWarmer{
		computer:    computer,
		periodTypes: periodTypes,
		since:       since,
		dailyAt:     dailyAt,
		clock:       clock,
		logger:      log,
	}, nil
}

// Start runs the warmer loop until ctx is done.
func (w *CacheWarmer) Start(ctx context.Context) {
	if w == nil || w.computer == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := w.clock.Now().UTC()
			if !w.shouldRun(now) {
				continue
			}
			if err := w.RunOnce(ctx, now); err != nil {
				w.logger.Warn("cache warm run failed", "err", err)
			}
		}
	}
}

func (w *CacheWarmer) shouldRun(now time.Time) bool {
	hour, minute, err := parseDailyAt(w.dailyAt)
	if err != nil {
		return false
	}
	return now.Hour() == hour && now.Minute() == minute
}

// RunOnce computes every closed period between since and the day before now,
// in UTC like the aggregator.
func (w *CacheWarmer) RunOnce(ctx context.Context, now time.Time) error {
	now = now.UTC()
	to := ledger.TruncateDay(now).AddDate(0, 0, -1)
	from := w.since
	if from.IsZero() {
		from = time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if from.After(to) {
		return nil
	}

	var errs []error
	for _, p := range w.periodTypes {
		start := time.Now()
		summaries, err := w.computer.ComputePeriodsStats(ctx, p, application.StatsOptions{From: from, To: to})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
		w.logger.Info("cache warmed",
			"period_type", string(p),
			"periods", len(summaries),
			"duration", time.Since(start).String(),
		)
	}
	err := errors.Join(errs...)
	metrics.IncWarmRun(metrics.ResultOf(err))
	return err
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
