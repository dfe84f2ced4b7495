package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/prism-insight/cryptoswing/internal/config"
)

// coinIDBySymbol maps trading symbols to CoinGecko coin ids.
var coinIDBySymbol = map[string]string{
	"BTC-USD":  "bitcoin",
	"ETH-USD":  "ethereum",
	"SOL-USD":  "solana",
	"BNB-USD":  "binancecoin",
	"XRP-USD":  "ripple",
	"ADA-USD":  "cardano",
	"DOGE-USD": "dogecoin",
	"AVAX-USD": "avalanche-2",
	"LINK-USD": "chainlink",
	"DOT-USD":  "polkadot",
	"TRX-USD":  "tron",
	"XLM-USD":  "stellar",
	"LTC-USD":  "litecoin",
	"BCH-USD":  "bitcoin-cash",
	"ATOM-USD": "cosmos",
	"NEAR-USD": "near",
}

// DailyPrice is one UTC day's closing level.
type DailyPrice struct {
	Date  string
	Price float64
}

// CoinGecko fetches daily price series from the public market_chart API.
type CoinGecko struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewCoinGecko creates a client against baseURL (the /api/v3 root).
func NewCoinGecko(baseURL string) *CoinGecko {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &CoinGecko{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  config.NewLogger("coingecko"),
	}
}

type marketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

// DailyPrices returns the daily series for coinID over the trailing
// window, deduplicated to one point per UTC date.
func (c *CoinGecko) DailyPrices(ctx context.Context, coinID string, days int) ([]DailyPrice, error) {
	if days < 1 {
		days = 1
	}

	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", fmt.Sprintf("%d", days))
	q.Set("interval", "daily")
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", c.baseURL, url.PathEscape(coinID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "prism-insight/crypto-benchmark")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market chart request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for coin %s", resp.StatusCode, coinID)
	}

	var payload marketChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode market chart: %w", err)
	}

	dedup := make(map[string]float64, len(payload.Prices))
	for _, item := range payload.Prices {
		if len(item) < 2 {
			continue
		}
		ts := time.UnixMilli(int64(item[0])).UTC()
		dedup[ts.Format("2006-01-02")] = item[1]
	}

	out := make([]DailyPrice, 0, len(dedup))
	for date, price := range dedup {
		out = append(out, DailyPrice{Date: date, Price: price})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
