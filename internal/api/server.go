package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/volatria/volatria-backend/internal/apperr"
	"github.com/volatria/volatria-backend/internal/breaker"
	"github.com/volatria/volatria-backend/internal/cache"
	"github.com/volatria/volatria-backend/internal/ratelimit"
)

type Options struct {
	Port            int
	CORSAllowOrigin string
	Popular         []string // served by GET /stocks
	Logger          log.Logger
	Instruments     Instruments
	// Fetcher is optional; nil means ingestion is disabled.
	Fetcher FetcherStatus
	Now     func() time.Time
}

type Server struct {
	store   Store
	cache   *cache.Cache[any]
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	fetcher FetcherStatus

	popular    []string
	corsOrigin string
	logger     log.Logger
	inst       Instruments
	now        func() time.Time

	handler    http.Handler
	httpServer *http.Server
}

func NewServer(store Store, c *cache.Cache[any], limiter *ratelimit.Limiter, br *breaker.Breaker, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Instruments.Requests == nil {
		opts.Instruments = DiscardInstruments()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		store:      store,
		cache:      c,
		limiter:    limiter,
		breaker:    br,
		fetcher:    opts.Fetcher,
		popular:    opts.Popular,
		corsOrigin: opts.CORSAllowOrigin,
		logger:     opts.Logger,
		inst:       opts.Instruments,
		now:        opts.Now,
	}

	mux := http.NewServeMux()

	// Auth
	s.route(mux, "POST /login", s.handleLogin)

	// Stock routes
	s.route(mux, "GET /stocks", s.handlePopular)
	s.route(mux, "GET /stocks/{symbol}", s.handleStock)
	s.route(mux, "GET /stocks/{symbol}/chart", s.handleChart)

	// Watchlist routes
	s.route(mux, "POST /watchlist", s.handleAddToWatchlist)
	s.route(mux, "GET /watchlist", s.handleWatchlist)

	// Metrics
	s.route(mux, "GET /metrics", s.handleMetrics)
	s.route(mux, "GET /metrics/prometheus", promhttp.Handler().ServeHTTP)

	// Health check (no guards)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.handler = s.accessLog(corsMiddleware(mux, s.corsOrigin))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	return s
}

// route registers h behind instrumentation, the per-IP rate limiter and the
// circuit breaker.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, s.rateLimit(s.circuitBreak(h))))
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	level.Info(s.logger).Log("msg", "REST API server started", "addr", "http://localhost"+s.httpServer.Addr)
	level.Info(s.logger).Log("msg", "health check", "url", "http://localhost"+s.httpServer.Addr+"/health")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps err onto its HTTP status. Store and unexpected failures
// are logged and reported without detail.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		level.Error(s.logger).Log("msg", "request failed", "path", r.URL.Path, "err", err)
		msg = "internal server error"
	} else if status >= 500 {
		level.Warn(s.logger).Log("msg", "request failed", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, msg)
}
