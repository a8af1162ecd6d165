package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-kit/kit/log/level"

	"github.com/volatria/volatria-backend/internal/apperr"
	"github.com/volatria/volatria-backend/internal/models"
)

// MinHistoryPoints is the floor a historical range is padded up to.
const MinHistoryPoints = 30

// StoreQuote records a price observation. A second write for the same symbol
// and timestamp is ignored.
func (s *Store) StoreQuote(ctx context.Context, symbol string, price float64, ts time.Time) error {
	if !models.ValidSymbol(symbol) {
		return fmt.Errorf("%w: symbol %q", apperr.ErrInvalidInput, symbol)
	}
	if !models.ValidPrice(price) {
		return fmt.Errorf("%w: price %v for %s", apperr.ErrInvalidInput, price, symbol)
	}

	policy := s.retry
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		level.Warn(s.logger).Log("msg", "store quote retry", "symbol", symbol, "attempt", attempt, "delay", delay, "err", err)
	}

	err := policy.Do(ctx, func(ctx context.Context) error {
		return s.write(ctx, func(ctx context.Context) error {
			_, err := s.exec(ctx,
				`INSERT INTO quotes (symbol, price, ts) VALUES (?, ?, ?)
				 ON CONFLICT (symbol, ts) DO NOTHING`,
				symbol, price, toMillis(ts),
			)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: store quote %s: %v", apperr.ErrStore, symbol, err)
	}
	return nil
}

// LatestQuote returns the most recent stored quote for symbol.
func (s *Store) LatestQuote(ctx context.Context, symbol string) (models.Quote, error) {
	row := s.queryRow(ctx,
		`SELECT symbol, price, ts FROM quotes WHERE symbol = ? ORDER BY ts DESC LIMIT 1`,
		symbol,
	)
	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Quote{}, fmt.Errorf("%w: no quote for %s", apperr.ErrNotFound, symbol)
	}
	if err != nil {
		return models.Quote{}, fmt.Errorf("%w: latest quote %s: %v", apperr.ErrStore, symbol, err)
	}
	return q, nil
}

func (s *Store) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	q, err := s.LatestQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

// HistoricalPrices returns the quotes for symbol with start <= ts <= end,
// ascending. A range holding fewer than MinHistoryPoints real points is padded
// with synthetic points derived from the latest known price.
func (s *Store) HistoricalPrices(ctx context.Context, symbol string, start, end time.Time) ([]models.Quote, error) {
	rows, err := s.query(ctx,
		`SELECT symbol, price, ts FROM quotes
		 WHERE symbol = ? AND ts BETWEEN ? AND ?
		 ORDER BY ts ASC`,
		symbol, toMillis(start), toMillis(end),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: historical %s: %v", apperr.ErrStore, symbol, err)
	}
	defer rows.Close()

	quotes, err := collectQuotes(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: historical %s: %v", apperr.ErrStore, symbol, err)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: no history for %s", apperr.ErrNotFound, symbol)
	}
	if len(quotes) >= MinHistoryPoints {
		return quotes, nil
	}

	base, err := s.LatestPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}
	synthetic := generateSynthetic(symbol, base, start, end, MinHistoryPoints-len(quotes), s.uniform)
	level.Debug(s.logger).Log("msg", "padded history", "symbol", symbol, "real", len(quotes), "synthetic", len(synthetic))

	quotes = append(quotes, synthetic...)
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Timestamp.Before(quotes[j].Timestamp)
	})
	return quotes, nil
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanQuote(row scannable) (models.Quote, error) {
	var q models.Quote
	var ts int64
	if err := row.Scan(&q.Symbol, &q.Price, &ts); err != nil {
		return models.Quote{}, err
	}
	q.Timestamp = fromMillis(ts)
	return q, nil
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectQuotes(rows rowsIter) ([]models.Quote, error) {
	var out []models.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
