// Package fetcher pulls quotes from the market-data provider into the store:
// a one-off historical backfill on start, then a live poll on a fixed
// schedule.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/robfig/cron/v3"

	"github.com/volatria/volatria-backend/internal/apperr"
	"github.com/volatria/volatria-backend/internal/external"
	"github.com/volatria/volatria-backend/internal/models"
	"github.com/volatria/volatria-backend/internal/ratelimit"
)

var (
	ErrAlreadyRunning = errors.New("fetcher already running")
	ErrNotRunning     = errors.New("fetcher not running")
)

// QuoteSource is the market-data provider.
type QuoteSource interface {
	LatestQuote(ctx context.Context, symbol string) (float64, error)
	DailySeries(ctx context.Context, symbol string) ([]external.DailyPoint, error)
	Ping(ctx context.Context) error
}

type QuoteWriter interface {
	StoreQuote(ctx context.Context, symbol string, price float64, ts time.Time) error
}

type Config struct {
	Interval        time.Duration // live poll period
	RequestTimeout  time.Duration // per provider call
	BackfillTimeout time.Duration // whole backfill pass
	Concurrency     int
	Backfill        []string
	Live            []string
	Logger          log.Logger
	OnBackfill      func(Summary)
	Now             func() time.Time
}

// Summary describes one backfill pass.
type Summary struct {
	Symbols   int
	Succeeded int
	Failed    []string
	Points    int
	Duration  time.Duration
}

// Metrics counts provider calls since the fetcher was created.
type Metrics struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
	NoData     int64 `json:"noData"`
}

type Fetcher struct {
	source  QuoteSource
	writer  QuoteWriter
	limiter *ratelimit.Limiter
	cfg     Config
	logger  log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	cron    *cron.Cron

	total      atomic.Int64
	successful atomic.Int64
	failed     atomic.Int64
	noData     atomic.Int64
}

func New(source QuoteSource, writer QuoteWriter, limiter *ratelimit.Limiter, cfg Config) *Fetcher {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.BackfillTimeout <= 0 {
		cfg.BackfillTimeout = 5 * time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Fetcher{
		source:  source,
		writer:  writer,
		limiter: limiter,
		cfg:     cfg,
		logger:  cfg.Logger,
	}
}

// Start launches the background task: backfill, one immediate poll, then a
// poll every Interval.
func (f *Fetcher) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{f.logger})))
	f.cancel = cancel
	f.done = make(chan struct{})
	f.running = true

	go f.run(ctx, f.cron, f.done)

	level.Info(f.logger).Log("msg", "started", "interval", f.cfg.Interval, "backfill", len(f.cfg.Backfill), "live", len(f.cfg.Live))
	return nil
}

// Stop cancels scheduling and waits for the background task and any running
// poll to return. In-flight provider calls finish within RequestTimeout.
func (f *Fetcher) Stop() error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return ErrNotRunning
	}
	f.running = false
	cancel, done, c := f.cancel, f.done, f.cron
	f.mu.Unlock()

	cancel()
	<-done
	<-c.Stop().Done()

	level.Info(f.logger).Log("msg", "stopped")
	return nil
}

func (f *Fetcher) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// HealthCheck reports whether the fetcher is running and the provider answers.
func (f *Fetcher) HealthCheck(ctx context.Context) error {
	if !f.IsRunning() {
		return fmt.Errorf("%w: %v", apperr.ErrUnavailable, ErrNotRunning)
	}
	ctx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
	defer cancel()
	if err := f.source.Ping(ctx); err != nil {
		return fmt.Errorf("provider ping: %w", err)
	}
	return nil
}

func (f *Fetcher) Metrics() Metrics {
	return Metrics{
		Total:      f.total.Load(),
		Successful: f.successful.Load(),
		Failed:     f.failed.Load(),
		NoData:     f.noData.Load(),
	}
}

func (f *Fetcher) run(ctx context.Context, c *cron.Cron, done chan struct{}) {
	defer close(done)

	f.BackfillNow(ctx)
	if ctx.Err() != nil {
		return
	}
	f.PollNow(ctx)
	if ctx.Err() != nil {
		return
	}

	schedule := "@every " + f.cfg.Interval.String()
	if _, err := c.AddFunc(schedule, func() { f.PollNow(ctx) }); err != nil {
		level.Error(f.logger).Log("msg", "schedule poll", "schedule", schedule, "err", err)
		return
	}
	c.Start()
}

// callContext bounds a provider call by RequestTimeout without inheriting
// cancellation, so a stop lets the call finish.
func (f *Fetcher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), f.cfg.RequestTimeout)
}

func (f *Fetcher) record(err error) {
	f.total.Add(1)
	switch {
	case err == nil:
		f.successful.Add(1)
	case errors.Is(err, external.ErrNoData):
		f.noData.Add(1)
	default:
		f.failed.Add(1)
	}
}

func (f *Fetcher) acquire(ctx context.Context, symbol string) error {
	if !models.ValidSymbol(symbol) {
		return fmt.Errorf("%w: symbol %q", apperr.ErrInvalidInput, symbol)
	}
	return f.limiter.Wait(ctx, ratelimit.ProviderKey)
}

type cronLogger struct {
	logger log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	level.Debug(l.logger).Log(append([]interface{}{"msg", "cron: " + msg}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	level.Error(l.logger).Log(append([]interface{}{"msg", "cron: " + msg, "err", err}, keysAndValues...)...)
}
