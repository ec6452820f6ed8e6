package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coworking-metz/tickets-backend-sub000/internal/bootstrap"
	"github.com/coworking-metz/tickets-backend-sub000/internal/config"
	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/observability/logger"
	"github.com/coworking-metz/tickets-backend-sub000/internal/observability/metrics"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/application"
	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/interfaces"
)

func main() {
	cfg, err := config.Load(os.Getenv("COWORKING_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", "err", err)
		os.Exit(1)
	}
	if cfg.Metrics.Enabled {
		metrics.Init(rt.DB, log)
	}

	if cfg.Warmer.Enabled {
		warmer, err := newWarmer(cfg, rt.Aggregator, log)
		if err != nil {
			log.Error("cache warmer error", "err", err)
			os.Exit(1)
		}
		go warmer.Start(ctx)
		log.Info("cache warmer scheduled", "daily_at", cfg.Warmer.DailyAt)
	}

	mux := http.NewServeMux()
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if rt.DB != nil {
			if err := rt.DB.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           loggingMiddleware(mux, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("http listening", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	if err := rt.Close(shutdownCtx); err != nil {
		log.Error("shutdown error", "err", err)
	}
	log.Info("graceful shutdown complete")
}

func newWarmer(cfg config.Config, aggregator *application.PeriodAggregator, log *slog.Logger) (*interfaces.CacheWarmer, error) {
	periodTypes := make([]stats.PeriodType, 0, len(cfg.Warmer.PeriodTypes))
	for _, raw := range cfg.Warmer.PeriodTypes {
		p, err := stats.ParsePeriodType(raw)
		if err != nil {
			return nil, err
		}
		periodTypes = append(periodTypes, p)
	}
	var since time.Time
	if s := strings.TrimSpace(cfg.Warmer.Since); s != "" {
		parsed, err := ledger.ParseDate(s)
		if err != nil {
			return nil, err
		}
		since = parsed
	}
	return interfaces.NewCacheWarmer(aggregator, periodTypes, since, cfg.Warmer.DailyAt, application.SystemClock{}, log)
}

func loggingMiddleware(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", resp.status,
			"duration", time.Since(start).String(),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
