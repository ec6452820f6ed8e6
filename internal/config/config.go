package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	App struct {
		Env string `mapstructure:"env" validate:"required"`
	} `mapstructure:"app"`

	HTTP struct {
		Addr            string        `mapstructure:"addr" validate:"required"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN     string `mapstructure:"dsn"`
		Migrate bool   `mapstructure:"migrate"`
	} `mapstructure:"postgres"`

	Stats struct {
		Workers         int           `mapstructure:"workers" validate:"min=1,max=64"`
		IncludesCurrent bool          `mapstructure:"includes_current"`
		CacheBackend    string        `mapstructure:"cache_backend" validate:"oneof=file postgres"`
		CacheFile       string        `mapstructure:"cache_file" validate:"required_if=CacheBackend file"`
		FlushDelay      time.Duration `mapstructure:"flush_delay" validate:"gt=0"`
	} `mapstructure:"stats"`

	Pricing struct {
		File                string  `mapstructure:"file"`
		FallbackTicketPrice float64 `mapstructure:"fallback_ticket_price" validate:"gte=0"`
	} `mapstructure:"pricing"`

	Warmer struct {
		Enabled     bool     `mapstructure:"enabled"`
		// DailyAt is HH:MM in UTC.
		DailyAt     string   `mapstructure:"daily_at" validate:"required_if=Enabled true"`
		PeriodTypes []string `mapstructure:"period_types" validate:"dive,oneof=day week month year"`
		Since       string   `mapstructure:"since" validate:"omitempty,datetime=2006-01-02"`
	} `mapstructure:"warmer"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", "5s")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.migrate", true)
	v.SetDefault("stats.workers", 8)
	v.SetDefault("stats.includes_current", false)
	v.SetDefault("stats.cache_backend", "file")
	v.SetDefault("stats.cache_file", "data/stats-cache.json")
	v.SetDefault("stats.flush_delay", "10s")
	v.SetDefault("pricing.file", "")
	v.SetDefault("pricing.fallback_ticket_price", 0)
	v.SetDefault("warmer.enabled", false)
	v.SetDefault("warmer.daily_at", "03:00")
	v.SetDefault("warmer.period_types", []string{"day", "week", "month", "year"})
	v.SetDefault("warmer.since", "")
	v.SetDefault("metrics.enabled", true)
}

// Load reads the configuration. A .env file in the working directory is
// loaded first when present, then path (optional) and COWORKING_* variables
// are merged over the defaults.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("COWORKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("config: decode: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	if c.Stats.CacheBackend == "postgres" && c.Postgres.DSN == "" {
		return c, errors.New("config: postgres cache backend requires postgres.dsn")
	}
	return c, nil
}
