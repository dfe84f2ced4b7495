package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/prism-insight/cryptoswing/internal/config"
	"github.com/prism-insight/cryptoswing/internal/metrics"
)

const (
	maxAttemptsPerStep = 3
	backoffUnit        = 350 * time.Millisecond
)

// Client fetches OHLCV bars from a Yahoo-chart-compatible endpoint.
// All requests pass through a token-bucket limiter and a circuit breaker.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cache   *RedisPriceCache
	logger  zerolog.Logger
}

// NewClient creates a market data client. cache may be nil.
func NewClient(cfg config.MarketConfig, cache *RedisPriceCache) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 4.0
	}
	timeout := cfg.GetTimeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "marketdata",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 8
		},
	})

	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: breaker,
		cache:   cache,
		logger:  config.NewLogger("marketdata"),
	}
}

// FetchBars fetches candles for symbol, walking a fallback plan of
// (period, interval) pairs until one yields data. An exhausted plan is not
// an error: the caller drops the symbol from the cycle.
func (c *Client) FetchBars(ctx context.Context, symbol, period, interval string) ([]Bar, error) {
	resample := ""
	fetchInterval := interval
	if interval == "2h" {
		// 2h is not served natively; fetch 1h and aggregate
		fetchInterval = "1h"
		resample = "2h"
	}

	plan := dedupePlan([]planStep{
		{period: period, interval: fetchInterval},
		{period: "30d", interval: "1h"},
		{period: "60d", interval: "1d"},
	})

	for _, step := range plan {
		bars, err := c.fetchWithRetry(ctx, symbol, step)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn().
				Err(err).
				Str("symbol", symbol).
				Str("period", step.period).
				Str("interval", step.interval).
				Msg("Bar fetch step exhausted")
			continue
		}
		if len(bars) == 0 {
			continue
		}
		if resample != "" && step.interval == fetchInterval {
			bars = Resample(bars, resample)
		}
		return bars, nil
	}

	metrics.BarFetchFailures.Inc()
	c.logger.Warn().Str("symbol", symbol).Msg("All bar fetch steps failed")
	return nil, nil
}

// SpotPrice returns the latest close for symbol, 0 when every plan step
// fails. The Redis cache, when configured, short-circuits the HTTP path.
func (c *Client) SpotPrice(ctx context.Context, symbol string) float64 {
	if price, ok := c.cache.Get(ctx, symbol); ok {
		return price
	}

	plan := []planStep{
		{period: "1d", interval: "1m"},
		{period: "5d", interval: "1h"},
		{period: "30d", interval: "1d"},
	}

	for _, step := range plan {
		bars, err := c.fetchOnce(ctx, symbol, step)
		if err != nil || len(bars) == 0 {
			continue
		}
		price := bars[len(bars)-1].Close
		if price <= 0 {
			continue
		}
		c.cache.Set(ctx, symbol, price)
		return price
	}

	c.logger.Warn().Str("symbol", symbol).Msg("Spot price unavailable")
	return 0
}

func (c *Client) fetchWithRetry(ctx context.Context, symbol string, step planStep) ([]Bar, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttemptsPerStep; attempt++ {
		bars, err := c.fetchOnce(ctx, symbol, step)
		if err == nil {
			return bars, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * backoffUnit):
		}
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, symbol string, step planStep) ([]Bar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, symbol, step)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Bar), nil
}

func (c *Client) doRequest(ctx context.Context, symbol string, step planStep) ([]Bar, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("range", step.period)
	q.Set("interval", step.interval)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", "cryptoswing/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, symbol)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode chart response: %w", err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart error for %s: %s", symbol, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, nil
	}

	return payload.Chart.Result[0].bars(), nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// bars converts the chart payload to candles, skipping rows with null
// prices (exchange maintenance gaps).
func (r *chartResult) bars() []Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]

	out := make([]Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		b := Bar{
			Timestamp: time.Unix(ts, 0),
			Close:     *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			b.Open = *q.Open[i]
		} else {
			b.Open = b.Close
		}
		if i < len(q.High) && q.High[i] != nil {
			b.High = *q.High[i]
		} else {
			b.High = b.Close
		}
		if i < len(q.Low) && q.Low[i] != nil {
			b.Low = *q.Low[i]
		} else {
			b.Low = b.Close
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			b.Volume = *q.Volume[i]
		}
		out = append(out, b)
	}
	return out
}

func dedupePlan(plan []planStep) []planStep {
	seen := make(map[planStep]bool, len(plan))
	out := make([]planStep, 0, len(plan))
	for _, step := range plan {
		if seen[step] {
			continue
		}
		seen[step] = true
		out = append(out, step)
	}
	return out
}
