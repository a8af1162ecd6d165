package api

//go:generate mockgen -package=api -destination=mock_store_test.go -source=store.go Store,FetcherStatus

import (
	"context"
	"time"

	"github.com/volatria/volatria-backend/internal/fetcher"
	"github.com/volatria/volatria-backend/internal/models"
)

// Store is the persistence the handlers read from and write to.
type Store interface {
	LatestQuote(ctx context.Context, symbol string) (models.Quote, error)
	HistoricalPrices(ctx context.Context, symbol string, start, end time.Time) ([]models.Quote, error)
	AddToWatchlist(ctx context.Context, userID int64, symbol string) error
	Watchlist(ctx context.Context, userID int64) ([]models.WatchlistItem, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	Ping(ctx context.Context) error
}

// FetcherStatus is the read-only view of the background fetcher.
type FetcherStatus interface {
	IsRunning() bool
	HealthCheck(ctx context.Context) error
	Metrics() fetcher.Metrics
}
