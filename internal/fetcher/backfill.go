package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/kit/log/level"

	"github.com/volatria/volatria-backend/internal/batch"
)

// BackfillNow loads the daily history of every backfill symbol. The value of
// each outcome is the number of points stored.
func (f *Fetcher) BackfillNow(ctx context.Context) []batch.Outcome[int] {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, f.cfg.BackfillTimeout)
	defer cancel()

	level.Info(f.logger).Log("msg", "backfill started", "symbols", len(f.cfg.Backfill))
	outcomes := batch.Run(ctx, f.cfg.Backfill, f.cfg.Concurrency, f.backfillSymbol)

	summary := Summary{Symbols: len(outcomes), Duration: time.Since(start)}
	for _, o := range outcomes {
		if o.Err != nil {
			summary.Failed = append(summary.Failed, o.Item)
			level.Warn(f.logger).Log("msg", "backfill failed", "symbol", o.Item, "err", o.Err)
			continue
		}
		summary.Succeeded++
		summary.Points += o.Value
	}
	level.Info(f.logger).Log("msg", "backfill done", "succeeded", summary.Succeeded,
		"failed", len(summary.Failed), "points", summary.Points, "took", summary.Duration)

	if f.cfg.OnBackfill != nil {
		f.cfg.OnBackfill(summary)
	}
	return outcomes
}

func (f *Fetcher) backfillSymbol(ctx context.Context, symbol string) (int, error) {
	if err := f.acquire(ctx, symbol); err != nil {
		return 0, err
	}

	callCtx, cancel := f.callContext(ctx)
	defer cancel()

	points, err := f.source.DailySeries(callCtx, symbol)
	f.record(err)
	if err != nil {
		return 0, err
	}

	storeCtx := context.WithoutCancel(ctx)
	stored := 0
	var lastErr error
	for _, p := range points {
		ts, price, err := p.Parse()
		if err != nil {
			level.Debug(f.logger).Log("msg", "skip point", "symbol", symbol, "err", err)
			continue
		}
		if err := f.writer.StoreQuote(storeCtx, symbol, price, ts); err != nil {
			lastErr = err
			continue
		}
		stored++
	}
	if stored == 0 && lastErr != nil {
		return 0, fmt.Errorf("store %s history: %w", symbol, lastErr)
	}
	return stored, nil
}
