package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/go-kit/kit/log/level"

	"github.com/volatria/volatria-backend/internal/batch"
	"github.com/volatria/volatria-backend/internal/external"
)

// PollNow fetches the latest quote for every live symbol and stores it
// stamped with the fetch time. Failures are logged and skipped.
func (f *Fetcher) PollNow(ctx context.Context) []batch.Outcome[float64] {
	start := time.Now()
	outcomes := batch.Run(ctx, f.cfg.Live, f.cfg.Concurrency, f.pollSymbol)

	failed := batch.Failed(outcomes)
	for _, o := range failed {
		if errors.Is(o.Err, external.ErrNoData) {
			level.Debug(f.logger).Log("msg", "no data yet", "symbol", o.Item)
			continue
		}
		level.Warn(f.logger).Log("msg", "poll failed", "symbol", o.Item, "err", o.Err)
	}
	level.Debug(f.logger).Log("msg", "poll done", "symbols", len(outcomes), "failed", len(failed), "took", time.Since(start))
	return outcomes
}

func (f *Fetcher) pollSymbol(ctx context.Context, symbol string) (float64, error) {
	if err := f.acquire(ctx, symbol); err != nil {
		return 0, err
	}

	callCtx, cancel := f.callContext(ctx)
	defer cancel()

	price, err := f.source.LatestQuote(callCtx, symbol)
	f.record(err)
	if err != nil {
		return 0, err
	}
	if err := f.writer.StoreQuote(callCtx, symbol, price, f.cfg.Now()); err != nil {
		return 0, err
	}
	return price, nil
}
