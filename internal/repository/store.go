package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/volatria/volatria-backend/internal/apperr"
	"github.com/volatria/volatria-backend/internal/db"
	"github.com/volatria/volatria-backend/internal/retry"
)

// Store persists quotes, users and watchlists. Writes go through a bounded
// writer gate; reads are never gated.
type Store struct {
	db      *sql.DB
	dialect dialect
	writers chan struct{}
	retry   retry.Policy
	logger  log.Logger
	uniform func() float64

	queries    atomic.Int64
	queryNanos atomic.Int64
	slowest    atomic.Int64
}

type Options struct {
	Driver db.Driver
	// MaxWriters bounds concurrent writes. SQLite always uses 1.
	MaxWriters int
	Retry      retry.Policy
	Logger     log.Logger
	// Uniform returns values in [0, 1) for synthetic backfill. Defaults to math/rand/v2.
	Uniform func() float64
}

// WriteRetry is three attempts with 100ms * attempt backoff.
var WriteRetry = retry.Policy{
	MaxAttempts: 3,
	Backoff:     retry.Linear(100 * time.Millisecond),
	Retryable: func(err error) bool {
		return !errors.Is(err, apperr.ErrInvalidInput) &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded)
	},
}

func New(sqlDB *sql.DB, opts Options) *Store {
	if opts.Driver == "" {
		opts.Driver = db.SQLite
	}
	if opts.MaxWriters <= 0 || opts.Driver == db.SQLite {
		opts.MaxWriters = 1
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = WriteRetry
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Uniform == nil {
		opts.Uniform = rand.Float64
	}
	return &Store{
		db:      sqlDB,
		dialect: dialectFor(opts.Driver),
		writers: make(chan struct{}, opts.MaxWriters),
		retry:   opts.Retry,
		logger:  opts.Logger,
		uniform: opts.Uniform,
	}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate: %v", apperr.ErrStore, err)
		}
	}
	level.Debug(s.logger).Log("msg", "schema ready", "driver", s.dialect.driver)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", apperr.ErrStore, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Stats reports query timings and connection pool usage.
type Stats struct {
	Queries         int64   `json:"queries"`
	AvgQueryMillis  float64 `json:"avgQueryMs"`
	SlowestMillis   float64 `json:"slowestQueryMs"`
	OpenConnections int     `json:"openConnections"`
	InUse           int     `json:"inUse"`
	Idle            int     `json:"idle"`
	WaitCount       int64   `json:"waitCount"`
}

func (s *Store) Stats() Stats {
	ps := s.db.Stats()
	st := Stats{
		Queries:         s.queries.Load(),
		SlowestMillis:   float64(s.slowest.Load()) / float64(time.Millisecond),
		OpenConnections: ps.OpenConnections,
		InUse:           ps.InUse,
		Idle:            ps.Idle,
		WaitCount:       ps.WaitCount,
	}
	if st.Queries > 0 {
		st.AvgQueryMillis = float64(s.queryNanos.Load()) / float64(st.Queries) / float64(time.Millisecond)
	}
	return st
}

func (s *Store) observe(start time.Time) {
	d := int64(time.Since(start))
	s.queries.Add(1)
	s.queryNanos.Add(d)
	for {
		cur := s.slowest.Load()
		if d <= cur || s.slowest.CompareAndSwap(cur, d) {
			return
		}
	}
}

// write runs fn while holding a writer slot.
func (s *Store) write(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case s.writers <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.writers }()

	defer s.observe(time.Now())
	return fn(ctx)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	defer s.observe(time.Now())
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	defer s.observe(time.Now())
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
