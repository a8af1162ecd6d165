package api

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Database string `json:"database"`
	Fetcher  string `json:"fetcher"`
	Provider string `json:"provider,omitempty"`
	Breaker  string `json:"breaker"`
}

// handleHealth reports dependency status. ?deep=true also calls the provider.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Timestamp: formatTime(s.now()),
		Services: healthServices{
			Database: "connected",
			Fetcher:  "disabled",
			Breaker:  s.breaker.State().String(),
		},
	}
	status := http.StatusOK

	if err := s.store.Ping(ctx); err != nil {
		resp.Services.Database = "disconnected"
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if s.fetcher != nil {
		resp.Services.Fetcher = "stopped"
		if s.fetcher.IsRunning() {
			resp.Services.Fetcher = "running"
		} else if resp.Status == "ok" {
			resp.Status = "degraded"
		}

		if r.URL.Query().Get("deep") == "true" {
			resp.Services.Provider = "ok"
			if err := s.fetcher.HealthCheck(ctx); err != nil {
				resp.Services.Provider = err.Error()
				if resp.Status == "ok" {
					resp.Status = "degraded"
				}
			}
		}
	}

	writeJSON(w, status, resp)
}
