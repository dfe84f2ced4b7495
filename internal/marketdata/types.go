// Package marketdata fetches OHLCV bars and spot prices over HTTP with a
// fallback plan, outbound rate limiting and an optional Redis price cache.
package marketdata

import (
	"context"
	"time"
)

// Bar represents one OHLCV candle
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// BarFetcher fetches historical candles for a symbol
type BarFetcher interface {
	FetchBars(ctx context.Context, symbol, period, interval string) ([]Bar, error)
}

// SpotPricer returns the latest trade price for a symbol, 0 when unavailable
type SpotPricer interface {
	SpotPrice(ctx context.Context, symbol string) float64
}

// planStep is one (period, interval) attempt in a fetch plan
type planStep struct {
	period   string
	interval string
}
