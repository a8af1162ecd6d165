package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/volatria/volatria-backend/internal/apperr"
	"github.com/volatria/volatria-backend/internal/models"
)

// AddToWatchlist is idempotent: re-adding a symbol keeps the first
// added_at.
func (s *Store) AddToWatchlist(ctx context.Context, userID int64, symbol string) error {
	if !models.ValidSymbol(symbol) {
		return fmt.Errorf("%w: symbol %q", apperr.ErrInvalidInput, symbol)
	}
	ok, err := s.userExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: lookup user %d: %v", apperr.ErrStore, userID, err)
	}
	if !ok {
		return fmt.Errorf("%w: unknown user %d", apperr.ErrUnauthorized, userID)
	}

	err = s.write(ctx, func(ctx context.Context) error {
		_, err := s.exec(ctx,
			`INSERT INTO watchlist (user_id, symbol, added_at) VALUES (?, ?, ?)
			 ON CONFLICT (user_id, symbol) DO NOTHING`,
			userID, symbol, toMillis(time.Now()),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: add to watchlist: %v", apperr.ErrStore, err)
	}
	return nil
}

// Watchlist returns the user's symbols, newest first, each joined with its
// latest stored quote. Symbols never fetched have nil Price and Timestamp.
// An unknown user is Unauthorized, as in AddToWatchlist.
func (s *Store) Watchlist(ctx context.Context, userID int64) ([]models.WatchlistItem, error) {
	rows, err := s.query(ctx,
		`SELECT w.symbol, w.added_at, q.price, q.ts
		 FROM watchlist w
		 LEFT JOIN quotes q
		   ON q.symbol = w.symbol
		  AND q.ts = (SELECT MAX(ts) FROM quotes WHERE symbol = w.symbol)
		 WHERE w.user_id = ?
		 ORDER BY w.added_at DESC, w.symbol ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: watchlist: %v", apperr.ErrStore, err)
	}
	defer rows.Close()

	items := []models.WatchlistItem{}
	for rows.Next() {
		var (
			item    models.WatchlistItem
			addedAt int64
			price   sql.NullFloat64
			ts      sql.NullInt64
		)
		if err := rows.Scan(&item.Symbol, &addedAt, &price, &ts); err != nil {
			return nil, fmt.Errorf("%w: scan watchlist: %v", apperr.ErrStore, err)
		}
		item.AddedAt = fromMillis(addedAt)
		if price.Valid {
			p := price.Float64
			item.Price = &p
		}
		if ts.Valid {
			t := fromMillis(ts.Int64)
			item.Timestamp = &t
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: watchlist: %v", apperr.ErrStore, err)
	}

	if len(items) == 0 {
		ok, err := s.userExists(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: lookup user %d: %v", apperr.ErrStore, userID, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: unknown user %d", apperr.ErrUnauthorized, userID)
		}
	}
	return items, nil
}
