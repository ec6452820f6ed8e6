package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/coworking-metz/tickets-backend-sub000/internal/observability/logger"
	"github.com/coworking-metz/tickets-backend-sub000/internal/observability/metrics"
	stats "github.com/coworking-metz/tickets-backend-sub000/internal/stats/domain"
)

// DefaultFlushDelay is the quiet time after the latest mutation before the
// cache is written.
const DefaultFlushDelay = 10 * time.Second

// StatsCache keeps closed period summaries in memory and persists them as one
// JSON object keyed by "{type}-{YYYY-MM-DD}". The blob is loaded lazily on
// first access; writes are debounced.
type StatsCache struct {
	storage Storage
	logger  *slog.Logger
	delay   time.Duration

	loadOnce sync.Once
	writeMu  sync.Mutex

	mu      sync.Mutex
	entries map[string]stats.PeriodSummary
	timer   *time.Timer
	version uint64
	saved   uint64
	closed  bool
}

// Option configures a StatsCache.
type Option func(*StatsCache)

// WithFlushDelay overrides DefaultFlushDelay.
func WithFlushDelay(delay time.Duration) Option {
	return func(c *StatsCache) {
		if delay > 0 {
			c.delay = delay
		}
	}
}

// WithLogger sets the logger used for load and write failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *StatsCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New constructs a StatsCache backed by storage.
func New(storage Storage, opts ...Option) (*StatsCache, error) {
	if storage == nil {
		return nil, errors.New("cache: nil storage")
	}
	c := &StatsCache{
		storage: storage,
		logger:  logger.Discard(),
		delay:   DefaultFlushDelay,
		entries: make(map[string]stats.PeriodSummary),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *StatsCache) ensureLoaded(ctx context.Context) {
	c.loadOnce.Do(func() {
		data, err := c.storage.Load(context.WithoutCancel(ctx))
		if err != nil {
			c.logger.Warn("stats cache load failed, starting empty", "err", err)
			return
		}
		if len(data) == 0 {
			return
		}
		loaded := make(map[string]stats.PeriodSummary)
		if err := json.Unmarshal(data, &loaded); err != nil {
			c.logger.Warn("stats cache is corrupt, starting empty", "err", err)
			return
		}
		c.mu.Lock()
		for key, summary := range loaded {
			if _, ok := c.entries[key]; !ok {
				c.entries[key] = summary
			}
		}
		count := len(c.entries)
		c.mu.Unlock()
		metrics.SetCacheEntries(count)
		c.logger.Debug("stats cache loaded", "entries", count)
	})
}

// Has reports whether key is cached.
func (c *StatsCache) Has(ctx context.Context, key string) bool {
	c.ensureLoaded(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Get returns the cached summary of key.
func (c *StatsCache) Get(ctx context.Context, key string) (stats.PeriodSummary, bool) {
	c.ensureLoaded(ctx)
	c.mu.Lock()
	summary, ok := c.entries[key]
	c.mu.Unlock()
	metrics.IncCacheLookup(ok)
	return summary, ok
}

// Set stores summary under key and schedules a flush.
func (c *StatsCache) Set(ctx context.Context, key string, summary stats.PeriodSummary) {
	c.ensureLoaded(ctx)
	c.mutate(func(entries map[string]stats.PeriodSummary) {
		entries[key] = summary
	})
}

// Remove deletes key and schedules a flush.
func (c *StatsCache) Remove(ctx context.Context, key string) {
	c.ensureLoaded(ctx)
	c.mutate(func(entries map[string]stats.PeriodSummary) {
		delete(entries, key)
	})
}

// Clear drops every entry and schedules a flush.
func (c *StatsCache) Clear(ctx context.Context) {
	c.ensureLoaded(ctx)
	c.mutate(func(entries map[string]stats.PeriodSummary) {
		clear(entries)
	})
}

// Len returns the number of cached summaries.
func (c *StatsCache) Len(ctx context.Context) int {
	c.ensureLoaded(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *StatsCache) mutate(apply func(map[string]stats.PeriodSummary)) {
	c.mu.Lock()
	apply(c.entries)
	c.version++
	count := len(c.entries)
	if !c.closed {
		if c.timer != nil {
			c.timer.Stop()
		}
		c.timer = time.AfterFunc(c.delay, func() {
			_ = c.write(context.Background())
		})
	}
	c.mu.Unlock()
	metrics.SetCacheEntries(count)
}

// Flush cancels the pending flush and writes synchronously.
func (c *StatsCache) Flush(ctx context.Context) error {
	c.ensureLoaded(ctx)
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	return c.write(ctx)
}

// Close flushes and stops scheduling further writes. Entries stay readable.
func (c *StatsCache) Close(ctx context.Context) error {
	err := c.Flush(ctx)
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	return err
}

func (c *StatsCache) write(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if c.version == c.saved {
		c.mu.Unlock()
		return nil
	}
	snapshot := maps.Clone(c.entries)
	version := c.version
	c.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err == nil {
		err = c.storage.Save(ctx, data)
	}
	if err != nil {
		metrics.IncCacheFlush(metrics.ResultError)
		c.logger.Warn("stats cache write failed", "err", err, "entries", len(snapshot))
		return err
	}
	metrics.IncCacheFlush(metrics.ResultSuccess)

	c.mu.Lock()
	if version > c.saved {
		c.saved = version
	}
	c.mu.Unlock()
	return nil
}
