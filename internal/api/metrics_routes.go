package api

import (
	"net/http"

	"github.com/volatria/volatria-backend/internal/breaker"
	"github.com/volatria/volatria-backend/internal/cache"
	"github.com/volatria/volatria-backend/internal/fetcher"
	"github.com/volatria/volatria-backend/internal/repository"
)

type metricsResponse struct {
	Cache       cache.Stats        `json:"cache"`
	Breaker     breaker.Snapshot   `json:"breaker"`
	RateLimiter rateLimiterMetrics `json:"rateLimiter"`
	Fetcher     *fetcherMetrics    `json:"fetcher,omitempty"`
	Store       *repository.Stats  `json:"store,omitempty"`
}

type rateLimiterMetrics struct {
	Keys int `json:"keys"`
}

type fetcherMetrics struct {
	Running bool `json:"running"`
	fetcher.Metrics
}

// storeStats is implemented by stores that track query timings.
type storeStats interface {
	Stats() repository.Stats
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	resp := metricsResponse{
		Cache:       s.cache.Stats(),
		Breaker:     s.breaker.Snapshot(),
		RateLimiter: rateLimiterMetrics{Keys: s.limiter.Keys()},
	}
	if s.fetcher != nil {
		resp.Fetcher = &fetcherMetrics{Running: s.fetcher.IsRunning(), Metrics: s.fetcher.Metrics()}
	}
	if st, ok := s.store.(storeStats); ok {
		stats := st.Stats()
		resp.Store = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}
