package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volatria/volatria-backend/internal/apperr"
	"github.com/volatria/volatria-backend/internal/repository"
	"github.com/volatria/volatria-backend/internal/testutil"
)

var day0 = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

// ---------- quotes ----------

func TestStoreQuote_RoundTrip(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()

	require.NoError(t, store.StoreQuote(ctx, "AAPL", 189.25, day0))
	require.NoError(t, store.StoreQuote(ctx, "AAPL", 190.10, day0.Add(time.Hour)))

	q, err := store.LatestQuote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 190.10, q.Price)
	assert.True(t, q.Timestamp.Equal(day0.Add(time.Hour)))

	p, err := store.LatestPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 190.10, p)
}

func TestStoreQuote_DuplicateIgnored(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()

	require.NoError(t, store.StoreQuote(ctx, "MSFT", 400, day0))
	require.NoError(t, store.StoreQuote(ctx, "MSFT", 999, day0))

	q, err := store.LatestQuote(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 400.0, q.Price, "first write wins")
}

func TestStoreQuote_InvalidInput(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()

	err := store.StoreQuote(ctx, "NOT A SYMBOL", 10, day0)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)

	err = store.StoreQuote(ctx, "AAPL", -3, day0)
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestStoreQuote_ConcurrentWriters(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.StoreQuote(ctx, "NVDA", 100+float64(i), day0.Add(time.Duration(i)*time.Minute))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	series, err := store.HistoricalPrices(ctx, "NVDA", day0, day0.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, series, 50)
}

func TestStoreQuote_RetriesThenStoreFailure(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	require.NoError(t, store.Close())

	start := time.Now()
	err := store.StoreQuote(context.Background(), "AAPL", 150, day0)
	took := time.Since(start)

	require.ErrorIs(t, err, apperr.ErrStore)
	assert.Contains(t, err.Error(), "all 3 attempts failed")
	assert.GreaterOrEqual(t, took, 300*time.Millisecond, "100ms + 200ms backoff")
}

func TestStoreQuote_BackoffPerAttempt(t *testing.T) {
	var delays []int
	policy := repository.WriteRetry
	policy.Backoff = func(attempt int) time.Duration {
		delays = append(delays, attempt)
		return time.Millisecond
	}
	store := testutil.SetupSQLite(t, repository.Options{Retry: policy})
	require.NoError(t, store.Close())

	err := store.StoreQuote(context.Background(), "AAPL", 150, day0)
	require.ErrorIs(t, err, apperr.ErrStore)
	assert.Equal(t, []int{1, 2}, delays)
}

func TestStoreQuote_CancelledContextNotWrapped(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.StoreQuote(ctx, "AAPL", 150, day0)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperr.ErrStore)
}

func TestLatestQuote_NotFound(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})

	_, err := store.LatestQuote(context.Background(), "ZZZZ")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

// ---------- history ----------

func TestHistoricalPrices_EmptyIsNotFound(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()

	require.NoError(t, store.StoreQuote(ctx, "IBM", 150, day0.AddDate(0, 0, -30)))

	_, err := store.HistoricalPrices(ctx, "IBM", day0, day0.AddDate(0, 0, 7))
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHistoricalPrices_PadsToFloor(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{Uniform: func() float64 { return 0.75 }})
	ctx := context.Background()
	end := day0.AddDate(0, 0, 7)

	for i := 0; i < 4; i++ {
		require.NoError(t, store.StoreQuote(ctx, "AMD", 100+float64(i), day0.AddDate(0, 0, i)))
	}

	series, err := store.HistoricalPrices(ctx, "AMD", day0, end)
	require.NoError(t, err)
	require.Len(t, series, repository.MinHistoryPoints)

	realCount := 0
	for i, q := range series {
		assert.Equal(t, "AMD", q.Symbol)
		assert.False(t, q.Timestamp.Before(day0))
		assert.False(t, q.Timestamp.After(end))
		if i > 0 {
			assert.False(t, q.Timestamp.Before(series[i-1].Timestamp), "ascending at %d", i)
		}
		if !q.Synthetic {
			realCount++
		}
	}
	assert.Equal(t, 4, realCount)
}

func TestHistoricalPrices_ThreeDaysOfCloses(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()
	now := day0.AddDate(0, 0, 10)

	for i, price := range []float64{150, 151, 149} {
		require.NoError(t, store.StoreQuote(ctx, "AAPL", price, now.AddDate(0, 0, i-3)))
	}

	latest, err := store.LatestPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 149.0, latest)

	series, err := store.HistoricalPrices(ctx, "AAPL", now.AddDate(0, 0, -3), now)
	require.NoError(t, err)
	require.Len(t, series, 30)

	var realPrices []float64
	for i, q := range series {
		assert.Greater(t, q.Price, 0.0)
		if i > 0 {
			assert.False(t, q.Timestamp.Before(series[i-1].Timestamp), "ascending at %d", i)
		}
		if !q.Synthetic {
			realPrices = append(realPrices, q.Price)
		}
	}
	assert.Equal(t, []float64{150, 151, 149}, realPrices)
}

func TestHistoricalPrices_NoPaddingAtFloor(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()

	for i := 0; i < 35; i++ {
		require.NoError(t, store.StoreQuote(ctx, "ORCL", 120, day0.Add(time.Duration(i)*time.Hour)))
	}

	series, err := store.HistoricalPrices(ctx, "ORCL", day0, day0.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Len(t, series, 35)
	for _, q := range series {
		assert.False(t, q.Synthetic)
	}
}

// ---------- users ----------

func TestAuthenticate(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()

	require.NoError(t, store.SeedUser(ctx, "demo", "s3cret"))
	require.NoError(t, store.SeedUser(ctx, "demo", "other"), "seeding twice is a no-op")

	u, err := store.Authenticate(ctx, "demo", "s3cret")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "demo", u.Username)

	_, err = store.Authenticate(ctx, "demo", "other")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = store.Authenticate(ctx, "nobody", "s3cret")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

// ---------- watchlist ----------

func TestWatchlist(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()

	require.NoError(t, store.SeedUser(ctx, "demo", "pw"))
	u, err := store.Authenticate(ctx, "demo", "pw")
	require.NoError(t, err)

	require.NoError(t, store.StoreQuote(ctx, "TSLA", 250, day0))
	require.NoError(t, store.StoreQuote(ctx, "TSLA", 255, day0.Add(time.Hour)))

	require.NoError(t, store.AddToWatchlist(ctx, u.ID, "TSLA"))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.AddToWatchlist(ctx, u.ID, "SHOP"))
	require.NoError(t, store.AddToWatchlist(ctx, u.ID, "TSLA"), "re-adding is idempotent")

	items, err := store.Watchlist(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "SHOP", items[0].Symbol, "newest first")
	assert.Nil(t, items[0].Price)
	assert.Nil(t, items[0].Timestamp)

	assert.Equal(t, "TSLA", items[1].Symbol)
	require.NotNil(t, items[1].Price)
	assert.Equal(t, 255.0, *items[1].Price)
	require.NotNil(t, items[1].Timestamp)
	assert.True(t, items[1].Timestamp.Equal(day0.Add(time.Hour)))
}

func TestAddToWatchlist_TwiceKeepsOneRow(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()

	require.NoError(t, store.SeedUser(ctx, "demo", "pw"))
	u, err := store.Authenticate(ctx, "demo", "pw")
	require.NoError(t, err)
	require.Equal(t, int64(1), u.ID)

	require.NoError(t, store.AddToWatchlist(ctx, 1, "MSFT"))
	require.NoError(t, store.AddToWatchlist(ctx, 1, "MSFT"))

	items, err := store.Watchlist(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "MSFT", items[0].Symbol)
}

func TestWatchlist_UnknownUser(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()

	err := store.AddToWatchlist(ctx, 42, "AAPL")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = store.Watchlist(ctx, 42)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestWatchlist_KnownUserEmpty(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()

	require.NoError(t, store.SeedUser(ctx, "demo", "pw"))
	u, err := store.Authenticate(ctx, "demo", "pw")
	require.NoError(t, err)

	items, err := store.Watchlist(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

// ---------- lifecycle ----------

func TestPingAndStats(t *testing.T) {
	store := testutil.SetupSQLite(t, repository.Options{})
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.StoreQuote(ctx, "INTC", 30, day0))
	_, err := store.LatestQuote(ctx, "INTC")
	require.NoError(t, err)

	st := store.Stats()
	assert.GreaterOrEqual(t, st.Queries, int64(2))
	assert.GreaterOrEqual(t, st.AvgQueryMillis, 0.0)
}

// ---------- postgres ----------

func TestPostgresStore(t *testing.T) {
	store := testutil.SetupPostgres(t, repository.Options{MaxWriters: 4})
	ctx := context.Background()

	symbol := fmt.Sprintf("P%d", time.Now().UnixNano()%100000000)
	require.NoError(t, store.StoreQuote(ctx, symbol, 42.5, day0))
	require.NoError(t, store.StoreQuote(ctx, symbol, 43.5, day0))

	q, err := store.LatestQuote(ctx, symbol)
	require.NoError(t, err)
	assert.Equal(t, 42.5, q.Price)

	series, err := store.HistoricalPrices(ctx, symbol, day0.Add(-time.Hour), day0.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, series, repository.MinHistoryPoints)
	t.Logf("postgres series for %s: %d points", symbol, len(series))
}
