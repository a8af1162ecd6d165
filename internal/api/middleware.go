package api

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"

	"github.com/volatria/volatria-backend/internal/apperr"
)

const requestIDHeader = "X-Request-ID"

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		level.Debug(s.logger).Log(
			"msg", "request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"ip", clientIP(r),
			"took", time.Since(start),
		)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		s.inst.Requests.With("route", route, "method", r.Method, "code", strconv.Itoa(rec.status)).Add(1)
		s.inst.Duration.With("route", route, "method", r.Method).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r)) {
			s.inst.Rejected.With("reason", "rate_limited").Add(1)
			writeError(w, apperr.Status(apperr.ErrRateLimited), apperr.ErrRateLimited.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// circuitBreak rejects requests while the breaker is open and reports every
// 5xx response as a failure.
func (s *Server) circuitBreak(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.breaker.Allow() {
			s.inst.Rejected.With("reason", "circuit_open").Add(1)
			writeError(w, apperr.Status(apperr.ErrUnavailable), apperr.ErrUnavailable.Error())
			return
		}

		rec := newStatusRecorder(w)
		defer func() {
			if rec.status >= http.StatusInternalServerError {
				s.breaker.Failure()
			} else {
				s.breaker.Success()
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
