package metrics

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "coworking_"

	resultSuccess = "success"
	resultError   = "error"
)

// Computation kinds.
const (
	KindStats          = "stats"
	KindUsage          = "usage"
	KindIncome         = "income"
	KindAttendance     = "attendance"
	KindMemberCoverage = "member_coverage"
)

var (
	registerOnce sync.Once

	periodComputeTotal   *prometheus.CounterVec
	periodComputeLatency *prometheus.HistogramVec

	cacheLookups *prometheus.CounterVec
	cacheFlushes *prometheus.CounterVec
	cacheEntries prometheus.Gauge

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	warmRuns *prometheus.CounterVec
)

// Init registers statistics metrics and DB-backed gauges.
func Init(db *sql.DB, logger *slog.Logger) {
	registerOnce.Do(func() {
		periodComputeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "period_compute_total",
				Help: "Total period computations by kind and result",
			},
			[]string{"kind", "result"},
		)
		periodComputeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "period_compute_latency_seconds",
				Help:    "Period computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		)

		cacheLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "stats_cache_lookups_total",
				Help: "Stats cache lookups by outcome",
			},
			[]string{"outcome"},
		)
		cacheFlushes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "stats_cache_flush_total",
				Help: "Stats cache flushes by result",
			},
			[]string{"result"},
		)
		cacheEntries = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "stats_cache_entries",
				Help: "Period summaries held by the stats cache",
			},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		warmRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_warm_runs_total",
				Help: "Scheduled cache warm runs by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			periodComputeTotal,
			periodComputeLatency,
			cacheLookups,
			cacheFlushes,
			cacheEntries,
			exportTotal,
			exportLatency,
			warmRuns,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObservePeriodCompute records a period computation.
func ObservePeriodCompute(kind, result string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if periodComputeTotal != nil {
		periodComputeTotal.WithLabelValues(kind, result).Inc()
	}
	if periodComputeLatency != nil {
		periodComputeLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}

// IncCacheLookup counts a cache hit or miss.
func IncCacheLookup(hit bool) {
	if cacheLookups == nil {
		return
	}
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

// IncCacheFlush counts a cache flush.
func IncCacheFlush(result string) {
	if result == "" {
		result = resultSuccess
	}
	if cacheFlushes != nil {
		cacheFlushes.WithLabelValues(result).Inc()
	}
}

// SetCacheEntries sets the cache size gauge.
func SetCacheEntries(count int) {
	if cacheEntries != nil {
		cacheEntries.Set(float64(count))
	}
}

// ObserveExport records report export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncWarmRun counts a cache warm run.
func IncWarmRun(result string) {
	if result == "" {
		result = resultSuccess
	}
	if warmRuns != nil {
		warmRuns.WithLabelValues(result).Inc()
	}
}

// ResultOf maps an error to a result label.
func ResultOf(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
