package store

// Holding is one open position, keyed by symbol.
type Holding struct {
	Symbol       string  `db:"symbol"`
	AssetName    string  `db:"asset_name"`
	BuyPrice     float64 `db:"buy_price"`
	BuyDate      string  `db:"buy_date"`
	Quantity     float64 `db:"quantity"`
	NotionalUSD  float64 `db:"notional_usd"`
	CurrentPrice float64 `db:"current_price"`
	LastUpdated  string  `db:"last_updated"`
	Scenario     string  `db:"scenario"`
	TargetPrice  float64 `db:"target_price"`
	StopLoss     float64 `db:"stop_loss"`
	TriggerType  string  `db:"trigger_type"`
	Timeframe    string  `db:"timeframe"`
	Theme        string  `db:"theme"`
}

// TradeHistory is one closed position lifecycle.
type TradeHistory struct {
	ID           int64   `db:"id"`
	Symbol       string  `db:"symbol"`
	AssetName    string  `db:"asset_name"`
	BuyPrice     float64 `db:"buy_price"`
	BuyDate      string  `db:"buy_date"`
	Quantity     float64 `db:"quantity"`
	NotionalUSD  float64 `db:"notional_usd"`
	SellPrice    float64 `db:"sell_price"`
	SellDate     string  `db:"sell_date"`
	ProfitRate   float64 `db:"profit_rate"`
	HoldingHours float64 `db:"holding_hours"`
	Scenario     string  `db:"scenario"`
	TriggerType  string  `db:"trigger_type"`
	Timeframe    string  `db:"timeframe"`
	Theme        string  `db:"theme"`
}

// WatchlistEntry is one recorded no-entry (or failed-entry) decision.
type WatchlistEntry struct {
	ID              int64   `db:"id"`
	Symbol          string  `db:"symbol"`
	AnalyzedDate    string  `db:"analyzed_date"`
	CurrentPrice    float64 `db:"current_price"`
	BuyScore        int     `db:"buy_score"`
	MinScore        int     `db:"min_score"`
	Decision        string  `db:"decision"`
	SkipReason      string  `db:"skip_reason"`
	TargetPrice     float64 `db:"target_price"`
	StopLoss        float64 `db:"stop_loss"`
	RiskRewardRatio float64 `db:"risk_reward_ratio"`
	TriggerType     string  `db:"trigger_type"`
	Timeframe       string  `db:"timeframe"`
	Theme           string  `db:"theme"`
	Scenario        string  `db:"scenario"`
}

// PerformanceRow seeds the analysis performance tracker for later
// prediction scoring.
type PerformanceRow struct {
	ID                 int64   `db:"id"`
	Symbol             string  `db:"symbol"`
	AnalysisDate       string  `db:"analysis_date"`
	AnalysisPrice      float64 `db:"analysis_price"`
	PredictedDirection string  `db:"predicted_direction"`
	TargetPrice        float64 `db:"target_price"`
	StopLoss           float64 `db:"stop_loss"`
	BuyScore           int     `db:"buy_score"`
	Decision           string  `db:"decision"`
	SkipReason         string  `db:"skip_reason"`
	RiskRewardRatio    float64 `db:"risk_reward_ratio"`
	TrackingStatus     string  `db:"tracking_status"`
	WasTraded          int     `db:"was_traded"`
	TriggerType        string  `db:"trigger_type"`
	Timeframe          string  `db:"timeframe"`
	Theme              string  `db:"theme"`
	CreatedAt          string  `db:"created_at"`
}

// HoldingDecision is the audit row for one sell evaluation of a holding.
type HoldingDecision struct {
	ID           int64   `db:"id"`
	Symbol       string  `db:"symbol"`
	DecisionDate string  `db:"decision_date"`
	DecisionTime string  `db:"decision_time"`
	CurrentPrice float64 `db:"current_price"`
	ShouldSell   bool    `db:"should_sell"`
	SellReason   string  `db:"sell_reason"`
	Confidence   int     `db:"confidence"`
	FullJSONData string  `db:"full_json_data"`
}

// OrderExecution is one immutable ledger row.
type OrderExecution struct {
	ID             int64   `db:"id"`
	Symbol         string  `db:"symbol"`
	Side           string  `db:"side"`
	OrderType      string  `db:"order_type"`
	Status         string  `db:"status"`
	RequestedPrice float64 `db:"requested_price"`
	ExecutedPrice  float64 `db:"executed_price"`
	Quantity       float64 `db:"quantity"`
	QuoteAmount    float64 `db:"quote_amount"`
	FeeAmount      float64 `db:"fee_amount"`
	Mode           string  `db:"mode"`
	Message        string  `db:"message"`
	Metadata       string  `db:"metadata"`
	CreatedAt      string  `db:"created_at"`
}
