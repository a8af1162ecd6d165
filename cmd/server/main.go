package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/volatria/volatria-backend/internal/api"
	"github.com/volatria/volatria-backend/internal/breaker"
	"github.com/volatria/volatria-backend/internal/cache"
	"github.com/volatria/volatria-backend/internal/config"
	"github.com/volatria/volatria-backend/internal/db"
	"github.com/volatria/volatria-backend/internal/external"
	"github.com/volatria/volatria-backend/internal/fetcher"
	"github.com/volatria/volatria-backend/internal/logging"
	"github.com/volatria/volatria-backend/internal/notifications"
	"github.com/volatria/volatria-backend/internal/ratelimit"
	"github.com/volatria/volatria-backend/internal/repository"
)

const banner = `
╔══════════════════════════════════════╗
║        VOLATRIA market data          ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)

	if err := cfg.Validate(logger); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print(logger)

	// Store
	dbLogger := logging.Component(logger, "db")
	sqlDB, pool, err := openDatabase(cfg, dbLogger)
	if err != nil {
		level.Error(dbLogger).Log("msg", "connection failed", "err", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	if err := db.TestConnection(context.Background(), sqlDB, db.Driver(cfg.StoreDriver), dbLogger); err != nil {
		level.Error(dbLogger).Log("msg", "test query failed", "err", err)
		os.Exit(1)
	}

	store := repository.New(sqlDB, repository.Options{
		Driver:     db.Driver(cfg.StoreDriver),
		MaxWriters: cfg.StoreMaxWriters,
		Logger:     dbLogger,
	})
	defer func() {
		if err := store.Close(); err != nil {
			level.Warn(dbLogger).Log("msg", "close", "err", err)
		}
		level.Info(dbLogger).Log("msg", "connection closed")
	}()

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.Migrate(initCtx); err != nil {
		level.Error(dbLogger).Log("msg", "migration failed", "err", err)
		os.Exit(1)
	}
	if err := store.SeedUser(initCtx, cfg.SeedUsername, cfg.SeedPassword); err != nil {
		level.Error(dbLogger).Log("msg", "seed user failed", "err", err)
		os.Exit(1)
	}
	initCancel()

	// Notifications
	notify := notifications.NewSender(cfg.WebhookURL, cfg.AppName, logging.Component(logger, "notify"))

	// Shared guards
	instruments := api.NewPrometheusInstruments("volatria")
	responses := cache.New[any](cfg.CacheTTL, cfg.CacheMaxSize)
	responses.Start(cfg.CacheSweepInterval)

	inbound := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)
	br := breaker.New(breaker.Config{
		Threshold: cfg.BreakerThreshold,
		Timeout:   cfg.BreakerTimeout,
		HalfOpen:  cfg.BreakerHalfOpen,
		OnStateChange: func(from, to breaker.State) {
			instruments.BreakerState.Set(float64(to))
			notify.BreakerChanged(from, to)
		},
	})

	// Fetcher
	var fetch *fetcher.Fetcher
	var fetchStatus api.FetcherStatus
	if cfg.FetcherEnabled {
		provider := external.NewAlphaVantageClient(cfg.AlphaVantageAPIKey, external.AlphaVantageOptions{
			BaseURL: cfg.ProviderBaseURL,
			Timeout: cfg.ProviderTimeout,
		})
		fetch = fetcher.New(provider, store, ratelimit.New(cfg.ProviderRate, cfg.ProviderBurst), fetcher.Config{
			Interval:        cfg.FetchInterval,
			RequestTimeout:  cfg.ProviderTimeout,
			BackfillTimeout: cfg.BackfillTimeout,
			Concurrency:     cfg.BackfillConcurrency,
			Backfill:        cfg.Symbols.Backfill,
			Live:            cfg.Symbols.Live,
			Logger:          logging.Component(logger, "fetcher"),
			OnBackfill:      notify.BackfillDone,
		})
		fetchStatus = fetch
	}

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. API server
	apiLogger := logging.Component(logger, "api")
	srv := api.NewServer(store, responses, inbound, br, api.Options{
		Port:            cfg.Port,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
		Popular:         cfg.Symbols.Popular,
		Logger:          apiLogger,
		Instruments:     instruments,
		Fetcher:         fetchStatus,
	})
	go func() {
		if err := srv.Start(); err != nil {
			level.Error(apiLogger).Log("msg", "server error", "err", err)
			os.Exit(1)
		}
	}()

	// 2. Fetcher
	if fetch != nil {
		if err := fetch.Start(); err != nil {
			level.Error(logger).Log("msg", "fetcher start failed", "err", err)
			os.Exit(1)
		}
	} else {
		level.Info(logger).Log("msg", "fetcher skipped, FETCHER_ENABLED is false")
	}

	level.Info(logger).Log("msg", "all services started")

	// Wait for shutdown signal
	<-ctx.Done()
	level.Info(logger).Log("msg", "shutting down gracefully")

	if fetch != nil {
		if err := fetch.Stop(); err != nil {
			level.Warn(logger).Log("msg", "fetcher stop", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		level.Error(apiLogger).Log("msg", "shutdown error", "err", err)
	}
	responses.Stop()
	br.Close()
	level.Info(logger).Log("msg", "shutdown complete")
}

// openDatabase returns the database/sql handle for the configured driver. The
// pool is non-nil for postgres and must be closed after the handle.
func openDatabase(cfg *config.Config, logger log.Logger) (*sql.DB, *pgxpool.Pool, error) {
	if db.Driver(cfg.StoreDriver) == db.Postgres {
		level.Info(logger).Log("msg", "connecting", "driver", cfg.StoreDriver, "host", cfg.DBHost, "port", cfg.DBPort, "db", cfg.DBName)
		pool, err := db.Connect(cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		return db.OpenPostgres(pool), pool, nil
	}

	level.Info(logger).Log("msg", "opening", "driver", cfg.StoreDriver, "path", cfg.SQLitePath)
	sqlDB, err := db.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, nil, nil
}
