package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kit/kit/log/level"

	"github.com/volatria/volatria-backend/internal/apperr"
	"github.com/volatria/volatria-backend/internal/batch"
	"github.com/volatria/volatria-backend/internal/models"
)

const defaultChartRange = "7d"

// chartRanges maps a range parameter to the start of its window.
var chartRanges = map[string]func(end time.Time) time.Time{
	"7d": func(end time.Time) time.Time { return end.AddDate(0, 0, -7) },
	"1m": func(end time.Time) time.Time { return end.AddDate(0, -1, 0) },
	"1y": func(end time.Time) time.Time { return end.AddDate(-1, 0, 0) },
}

type quoteJSON struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp string  `json:"timestamp"`
}

type seriesJSON struct {
	Symbol string      `json:"symbol"`
	Prices []quoteJSON `json:"prices"`
}

func quoteKey(symbol string) string { return "quote:" + symbol }

func chartKey(symbol, rng string) string { return "chart:" + symbol + ":" + rng }

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func pathSymbol(r *http.Request) (string, error) {
	symbol := models.NormalizeSymbol(r.PathValue("symbol"))
	if !models.ValidSymbol(symbol) {
		return "", fmt.Errorf("%w: invalid symbol", apperr.ErrInvalidInput)
	}
	return symbol, nil
}

// latestQuote is the cache-aside read used by the single and popular routes.
func (s *Server) latestQuote(ctx context.Context, symbol string) (quoteJSON, error) {
	if v, ok := s.cache.Get(quoteKey(symbol)); ok {
		if q, ok := v.(quoteJSON); ok {
			return q, nil
		}
	}

	q, err := s.store.LatestQuote(ctx, symbol)
	if err != nil {
		return quoteJSON{}, err
	}
	out := quoteJSON{Symbol: q.Symbol, Price: q.Price, Timestamp: formatTime(q.Timestamp)}
	s.cache.Set(quoteKey(symbol), out)
	return out, nil
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	symbol, err := pathSymbol(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	q, err := s.latestQuote(r.Context(), symbol)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	symbol, err := pathSymbol(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = defaultChartRange
	}
	startOf, ok := chartRanges[rng]
	if !ok {
		s.writeAppError(w, r, fmt.Errorf("%w: unknown range %q, expected 7d, 1m or 1y", apperr.ErrInvalidInput, rng))
		return
	}

	key := chartKey(symbol, rng)
	if v, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, v)
		return
	}

	end := s.now()
	quotes, err := s.store.HistoricalPrices(r.Context(), symbol, startOf(end), end)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	out := seriesJSON{Symbol: symbol, Prices: make([]quoteJSON, len(quotes))}
	for i, q := range quotes {
		out.Prices[i] = quoteJSON{Symbol: symbol, Price: q.Price, Timestamp: formatTime(q.Timestamp)}
	}
	s.cache.Set(key, out)
	writeJSON(w, http.StatusOK, out)
}

// handlePopular serves the popular list. Symbols that fail are left out.
func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	outcomes := batch.Run(ctx, s.popular, 0, s.latestQuote)

	out := make([]quoteJSON, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			level.Debug(s.logger).Log("msg", "popular symbol skipped", "symbol", o.Item, "err", o.Err)
			continue
		}
		out = append(out, o.Value)
	}
	writeJSON(w, http.StatusOK, out)
}
