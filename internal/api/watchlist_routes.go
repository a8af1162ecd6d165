package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/volatria/volatria-backend/internal/apperr"
	"github.com/volatria/volatria-backend/internal/models"
)

const userIDHeader = "X-User-ID"

type watchlistItemJSON struct {
	Symbol    string   `json:"symbol"`
	Price     *float64 `json:"price"`
	Timestamp *string  `json:"timestamp"`
	AddedAt   string   `json:"addedAt"`
}

func watchlistKey(userID int64) string {
	return "watchlist:" + strconv.FormatInt(userID, 10)
}

// userID reads the caller identity. A missing header is Unauthorized, a
// malformed one InvalidInput.
func userID(r *http.Request) (int64, error) {
	raw := r.Header.Get(userIDHeader)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s header", apperr.ErrUnauthorized, userIDHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid user id", apperr.ErrInvalidInput)
	}
	return id, nil
}

func (s *Server) handleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	symbol := models.NormalizeSymbol(req.Symbol)
	if !models.ValidSymbol(symbol) {
		writeError(w, http.StatusBadRequest, "invalid symbol")
		return
	}

	if err := s.store.AddToWatchlist(r.Context(), uid, symbol); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.cache.Delete(watchlistKey(uid))

	writeJSON(w, http.StatusOK, map[string]string{"message": "symbol added to watchlist", "symbol": symbol})
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	key := watchlistKey(uid)
	if v, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, v)
		return
	}

	items, err := s.store.Watchlist(r.Context(), uid)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	out := make([]watchlistItemJSON, len(items))
	for i, it := range items {
		out[i] = watchlistItemJSON{Symbol: it.Symbol, Price: it.Price, AddedAt: formatTime(it.AddedAt)}
		if it.Timestamp != nil {
			ts := formatTime(*it.Timestamp)
			out[i].Timestamp = &ts
		}
	}
	s.cache.Set(key, out)
	writeJSON(w, http.StatusOK, out)
}
