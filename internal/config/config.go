package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Port            int    `envconfig:"PORT" default:"8080"`
	CORSAllowOrigin string `envconfig:"CORS_ALLOW_ORIGIN" default:"http://localhost:3000"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	AppName         string `envconfig:"APP_NAME" default:"Volatria"`
	WebhookURL      string `envconfig:"WEBHOOK_URL"`

	// Store
	StoreDriver     string `envconfig:"STORE_DRIVER" default:"sqlite"`
	SQLitePath      string `envconfig:"SQLITE_PATH" default:"volatria.db"`
	StoreMaxWriters int    `envconfig:"STORE_MAX_WRITERS" default:"4"`
	DBHost          string `envconfig:"DB_HOST" default:"localhost"`
	DBPort          int    `envconfig:"DB_PORT" default:"5432"`
	DBName          string `envconfig:"DB_NAME" default:"volatria"`
	DBUser          string `envconfig:"DB_USER" default:"postgres"`
	DBPassword      string `envconfig:"DB_PASSWORD"`

	// Seeded account
	SeedUsername string `envconfig:"SEED_USERNAME" default:"demo"`
	SeedPassword string `envconfig:"SEED_PASSWORD" default:"password123"`

	// Provider
	AlphaVantageAPIKey string        `envconfig:"ALPHAVANTAGE_API_KEY"`
	ProviderBaseURL    string        `envconfig:"PROVIDER_BASE_URL" default:"https://www.alphavantage.co/query"`
	ProviderTimeout    time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"10s"`
	ProviderRate       float64       `envconfig:"PROVIDER_RATE" default:"5"`
	ProviderBurst      int           `envconfig:"PROVIDER_BURST" default:"5"`

	// Fetcher
	FetcherEnabled      bool          `envconfig:"FETCHER_ENABLED" default:"true"`
	FetchInterval       time.Duration `envconfig:"FETCH_INTERVAL" default:"1m"`
	BackfillConcurrency int           `envconfig:"BACKFILL_CONCURRENCY" default:"5"`
	BackfillTimeout     time.Duration `envconfig:"BACKFILL_TIMEOUT" default:"5m"`
	SymbolsFile         string        `envconfig:"SYMBOLS_FILE"`

	// Cache
	CacheTTL           time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	CacheMaxSize       int           `envconfig:"CACHE_MAX_SIZE" default:"100"`
	CacheSweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"1m"`

	// Inbound rate limiting (per client IP)
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"20"`

	// Circuit breaker
	BreakerThreshold int           `envconfig:"BREAKER_THRESHOLD" default:"5"`
	BreakerTimeout   time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`
	BreakerHalfOpen  bool          `envconfig:"BREAKER_HALF_OPEN" default:"false"`

	Symbols Symbols `ignored:"true"`
}

// Symbols is the symbol universe. Backfill is loaded once at start, Live is
// polled on every tick and Popular is served by GET /stocks.
type Symbols struct {
	Backfill []string `yaml:"backfill"`
	Live     []string `yaml:"live"`
	Popular  []string `yaml:"popular"`
}

var DefaultBackfill = []string{
	"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "META", "NVDA", "AMD", "INTC", "IBM",
	"ORCL", "CSCO", "ADBE", "CRM", "AVGO", "QCOM", "TXN", "MU", "T", "VZ",
	"DIS", "NFLX", "PYPL", "SQ", "SHOP", "ZM", "DOCU", "SNOW", "DDOG", "CRWD",
	"ZS", "OKTA", "TEAM", "MDB", "NET", "ASAN", "TWLO", "RNG", "FSLY",
}

var DefaultPopular = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META", "TSLA", "NVDA", "AMD", "INTC", "SQ"}

func DefaultSymbols() Symbols {
	return Symbols{
		Backfill: append([]string(nil), DefaultBackfill...),
		Live:     append([]string(nil), DefaultBackfill[:10]...),
		Popular:  append([]string(nil), DefaultPopular...),
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg.Symbols = DefaultSymbols()
	if cfg.SymbolsFile != "" {
		if err := cfg.Symbols.loadFile(cfg.SymbolsFile); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// loadFile overrides the lists present in the YAML file; absent lists keep
// their defaults.
func (s *Symbols) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read symbols file: %w", err)
	}
	var file Symbols
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse symbols file %s: %w", path, err)
	}
	if len(file.Backfill) > 0 {
		s.Backfill = normalize(file.Backfill)
	}
	if len(file.Live) > 0 {
		s.Live = normalize(file.Live)
	}
	if len(file.Popular) > 0 {
		s.Popular = normalize(file.Popular)
	}
	return nil
}

func normalize(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

func (c *Config) Validate(logger log.Logger) error {
	var errs []string

	switch c.StoreDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			errs = append(errs, "SQLITE_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DBUser == "" || c.DBName == "" {
			errs = append(errs, "DB_USER and DB_NAME are required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER must be sqlite or postgres, got %q", c.StoreDriver))
	}
	if c.FetcherEnabled && c.AlphaVantageAPIKey == "" {
		errs = append(errs, "ALPHAVANTAGE_API_KEY is required when FETCHER_ENABLED is true")
	}
	if c.CacheTTL <= 0 || c.CacheMaxSize <= 0 {
		errs = append(errs, "CACHE_TTL and CACHE_MAX_SIZE must be positive")
	}
	if c.BreakerThreshold <= 0 || c.BreakerTimeout <= 0 {
		errs = append(errs, "BREAKER_THRESHOLD and BREAKER_TIMEOUT must be positive")
	}
	if c.RateLimitRPS <= 0 || c.ProviderRate <= 0 {
		errs = append(errs, "RATE_LIMIT_RPS and PROVIDER_RATE must be positive")
	}
	if c.FetchInterval < time.Second {
		errs = append(errs, "FETCH_INTERVAL must be at least 1s")
	}

	if c.SeedPassword == "password123" {
		level.Warn(logger).Log("msg", "SEED_PASSWORD is the built-in default, set it for anything but local use")
	}
	if c.CORSAllowOrigin == "*" {
		level.Warn(logger).Log("msg", "CORS_ALLOW_ORIGIN is *, any site can call the API")
	}
	if !c.FetcherEnabled {
		level.Warn(logger).Log("msg", "FETCHER_ENABLED is false, no new quotes will be ingested")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Print logs the effective configuration without secrets.
func (c *Config) Print(logger log.Logger) {
	l := level.Info(logger)
	l.Log("msg", "configuration", "port", c.Port, "cors_origin", c.CORSAllowOrigin, "log_level", c.LogLevel)
	if c.StoreDriver == "postgres" {
		l.Log("msg", "store", "driver", c.StoreDriver, "host", c.DBHost, "port", c.DBPort, "db", c.DBName, "max_writers", c.StoreMaxWriters)
	} else {
		l.Log("msg", "store", "driver", c.StoreDriver, "path", c.SQLitePath)
	}
	l.Log("msg", "provider", "url", c.ProviderBaseURL, "api_key", boolLabel(c.AlphaVantageAPIKey != "", "configured", "not set"),
		"rate", c.ProviderRate, "timeout", c.ProviderTimeout)
	l.Log("msg", "fetcher", "enabled", c.FetcherEnabled, "interval", c.FetchInterval, "concurrency", c.BackfillConcurrency,
		"backfill", len(c.Symbols.Backfill), "live", len(c.Symbols.Live), "popular", len(c.Symbols.Popular))
	l.Log("msg", "guards", "cache_ttl", c.CacheTTL, "cache_max", c.CacheMaxSize, "rate_limit_rps", c.RateLimitRPS,
		"breaker_threshold", c.BreakerThreshold, "breaker_timeout", c.BreakerTimeout, "breaker_half_open", c.BreakerHalfOpen)
	l.Log("msg", "notifications", "webhook", boolLabel(c.WebhookURL != "", "configured", "not set"))
}

// DSN is the Postgres connection URL with user and password escaped.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// --- helpers ---

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
