package snapshot

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/prism-insight/cryptoswing/internal/config"
	"github.com/prism-insight/cryptoswing/internal/marketdata"
	"github.com/prism-insight/cryptoswing/internal/theme"
)

// Build fetches bars for every symbol in parallel and returns one feature
// row per symbol with enough history. Symbols that fail to fetch or have
// too few bars are dropped, never fatal.
func Build(ctx context.Context, md marketdata.BarFetcher, symbols []string, period, interval string, concurrency int) ([]Row, error) {
	logger := config.NewLogger("snapshot")
	if concurrency <= 0 {
		concurrency = 4
	}

	var mu sync.Mutex
	rows := make([]Row, 0, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			bars, err := md.FetchBars(ctx, symbol, period, interval)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn().Err(err).Str("symbol", symbol).Msg("Bar fetch failed, dropping symbol")
				return nil
			}
			if len(bars) < MinBars {
				logger.Debug().
					Str("symbol", symbol).
					Int("bars", len(bars)).
					Msg("Insufficient history, dropping symbol")
				return nil
			}

			row, err := ComputeRow(symbol, bars)
			if err != nil {
				logger.Warn().Err(err).Str("symbol", symbol).Msg("Feature computation failed")
				return nil
			}
			row.Theme = theme.Classify(symbol)

			mu.Lock()
			rows = append(rows, row)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info().
		Int("universe", len(symbols)).
		Int("rows", len(rows)).
		Msg("Snapshot built")

	return rows, nil
}
