package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/coworking-metz/tickets-backend-sub000/internal/config"
	ledger "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/domain"
	"github.com/coworking-metz/tickets-backend-sub000/internal/ledger/infrastructure/memory"
	ledgerpostgres "github.com/coworking-metz/tickets-backend-sub000/internal/ledger/infrastructure/postgres"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/application"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/infrastructure/cache"
	"github.com/coworking-metz/tickets-backend-sub000/internal/stats/infrastructure/pricing"
	"github.com/coworking-metz/tickets-backend-sub000/migrations"
)

// Runtime holds the wired statistics engine.
type Runtime struct {
	// DB is nil when running on the in-memory ledger.
	DB         *sql.DB
	Store      ledger.Store
	Pricing    *pricing.Pricing
	Cache      *cache.StatsCache
	Aggregator *application.PeriodAggregator
}

// Open connects the ledger, applies migrations, loads pricing and builds the
// aggregator. Without a DSN the ledger is an empty in-memory store.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (*Runtime, error) {
	rt := &Runtime{}

	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("pgx", cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: db open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: db ping: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := runMigrations(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("bootstrap: migrations: %w", err)
			}
			log.Info("migrations applied")
		}
		rt.DB = db
		rt.Store = ledgerpostgres.NewStore(db)
	} else {
		log.Warn("postgres.dsn not set, using an empty in-memory ledger")
		rt.Store = memory.NewStore()
	}

	prices, err := pricing.Load(cfg.Pricing.File, cfg.Pricing.FallbackTicketPrice)
	if err != nil {
		rt.closeDB()
		return nil, err
	}
	rt.Pricing = prices

	storage, err := newCacheStorage(cfg, rt.DB)
	if err != nil {
		rt.closeDB()
		return nil, err
	}
	statsCache, err := cache.New(storage, cache.WithFlushDelay(cfg.Stats.FlushDelay), cache.WithLogger(log))
	if err != nil {
		rt.closeDB()
		return nil, err
	}
	rt.Cache = statsCache

	aggregator, err := application.NewPeriodAggregator(
		rt.Store,
		prices,
		prices.Charges,
		statsCache,
		application.SystemClock{},
		application.WithWorkers(cfg.Stats.Workers),
		application.WithLogger(log),
	)
	if err != nil {
		rt.closeDB()
		return nil, err
	}
	rt.Aggregator = aggregator
	return rt, nil
}

// Close flushes the stats cache and closes the database.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Cache != nil {
		if err := rt.Cache.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cache close: %w", err))
		}
	}
	if rt.DB != nil {
		if err := rt.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("db close: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (rt *Runtime) closeDB() {
	if rt.DB != nil {
		_ = rt.DB.Close()
	}
}

func newCacheStorage(cfg config.Config, db *sql.DB) (cache.Storage, error) {
	switch cfg.Stats.CacheBackend {
	case "postgres":
		if db == nil {
			return nil, errors.New("bootstrap: postgres cache backend without database")
		}
		return cache.NewPostgresStorage(db)
	default:
		return cache.NewFileStorage(cfg.Stats.CacheFile)
	}
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}
