package metrics

import (
	"database/sql"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *slog.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "members_total",
			Help: "Registered members",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM members")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "active_subscriptions",
			Help: "Subscriptions covering the current day",
		},
		func() float64 {
			return queryCount(db, logger,
				"SELECT COUNT(*) FROM subscriptions WHERE start_date <= CURRENT_DATE AND (start_date + INTERVAL '1 month' - INTERVAL '1 day')::date >= CURRENT_DATE")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "attendance_today",
			Help: "Attendance value recorded for the current day",
		},
		func() float64 {
			return querySum(db, logger, "SELECT COALESCE(SUM(value), 0)::float8 FROM member_activity WHERE date = CURRENT_DATE")
		},
	))
}

func queryCount(db *sql.DB, logger *slog.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Warn("metrics query failed", "err", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}

func querySum(db *sql.DB, logger *slog.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var sum float64
	if err := db.QueryRow(query).Scan(&sum); err != nil {
		if logger != nil {
			logger.Warn("metrics query failed", "err", err)
		}
		return 0
	}
	return sum
}
