// Package benchmark builds the dashboard comparison document: algorithm
// equity against BTC and an equal-weight universe basket, plus holdings,
// execution history and recent scheduler cycles.
package benchmark

import "math"

// Point is one day on the comparison chart.
type Point struct {
	Date                    string  `json:"date"`
	BTCPrice                float64 `json:"btc_price"`
	BTCReturnPct            float64 `json:"btc_return_pct"`
	UniverseReturnPct       float64 `json:"universe_return_pct"`
	AlgorithmEquity         float64 `json:"algorithm_equity"`
	AlgorithmReturnPct      float64 `json:"algorithm_return_pct"`
	BenchmarkEquity         float64 `json:"benchmark_equity"`
	UniverseBenchmarkEquity float64 `json:"universe_benchmark_equity"`
}

// HoldingView is one open position enriched with market value and its
// weight inside the book.
type HoldingView struct {
	Symbol        string  `json:"symbol"`
	BuyDate       string  `json:"buy_date"`
	Quantity      float64 `json:"quantity"`
	BuyPrice      float64 `json:"buy_price"`
	CurrentPrice  float64 `json:"current_price"`
	NotionalUSD   float64 `json:"notional_usd"`
	MarketValue   float64 `json:"market_value_usd"`
	UnrealizedPnL float64 `json:"unrealized_pnl_usd"`
	ProfitRatePct float64 `json:"profit_rate_pct"`
	WeightPct     float64 `json:"weight_pct"`
}

// ExecutionView is one ledger row annotated with the realized outcome
// when a matching closed trade exists. Nil annotation fields render as
// JSON null for buys and unmatched sells.
type ExecutionView struct {
	CreatedAt      string   `json:"created_at"`
	Symbol         string   `json:"symbol"`
	Side           string   `json:"side"`
	Status         string   `json:"status"`
	ExecutedPrice  float64  `json:"executed_price"`
	Quantity       float64  `json:"quantity"`
	QuoteAmount    float64  `json:"quote_amount"`
	FeeAmount      float64  `json:"fee_amount"`
	OrderType      string   `json:"order_type"`
	Mode           string   `json:"mode"`
	RealizedPnLPct *float64 `json:"realized_pnl_pct"`
	ExitType       *string  `json:"exit_type"`
	ExitReasonType *string  `json:"exit_reason_type"`
	LogicChangeTS  string   `json:"logic_change_ts"`
}

// Cycle is one scheduler run reconstructed from the log files.
type Cycle struct {
	StartedAt     string `json:"started_at"`
	EndedAt       string `json:"ended_at,omitempty"`
	Status        string `json:"status"`
	EntryCount    int    `json:"entry_count"`
	NoEntryCount  int    `json:"no_entry_count"`
	SoldCount     int    `json:"sold_count"`
	Error         string `json:"error,omitempty"`
	LogicChangeTS string `json:"logic_change_ts,omitempty"`

	phase3Done bool
}

// ExitReasonCounts buckets filled sells by their exit category.
type ExitReasonCounts struct {
	StopLoss int `json:"stop_loss"`
	Rotation int `json:"rotation"`
	Normal   int `json:"normal"`
}

// Summary holds the headline comparison numbers.
type Summary struct {
	AlgorithmReturnPct float64          `json:"algorithm_return_pct"`
	BTCReturnPct       float64          `json:"btc_return_pct"`
	AlphaPct           float64          `json:"alpha_pct"`
	UniverseReturnPct  float64          `json:"universe_return_pct"`
	UniverseAlphaPct   float64          `json:"universe_alpha_pct"`
	TotalTrades        int              `json:"total_trades"`
	WinRate            float64          `json:"win_rate"`
	OpenPositions      int              `json:"open_positions"`
	ExitReasonCounts   ExitReasonCounts `json:"exit_reason_counts"`
}

// Report is the full dashboard document.
type Report struct {
	GeneratedAt     string          `json:"generated_at"`
	PeriodDays      int             `json:"period_days"`
	InitialCapital  float64         `json:"initial_capital"`
	LogicChangeTS   string          `json:"logic_change_ts"`
	Summary         Summary         `json:"summary"`
	Points          []Point         `json:"points"`
	Holdings        []HoldingView   `json:"holdings"`
	OrderExecutions []ExecutionView `json:"order_executions"`
	RecentCycles    []Cycle         `json:"recent_cycles"`
}

// round keeps the document tidy without changing chart-scale values.
func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
