// Package paper is the paper-trading execution adapter: deterministic
// fills with slippage and fees, and an append-only executions ledger.
package paper

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/prism-insight/cryptoswing/internal/config"
	"github.com/prism-insight/cryptoswing/internal/marketdata"
	"github.com/prism-insight/cryptoswing/internal/store"
)

const (
	DefaultFeeRate      = 0.001
	DefaultSlippageRate = 0.0005
)

// Exchange fills orders at spot price with configurable slippage and
// records every call, filled or not, as exactly one ledger row.
type Exchange struct {
	pricer       marketdata.SpotPricer
	store        *store.Store
	feeRate      float64
	slippageRate float64
	logger       zerolog.Logger
}

// New creates a paper exchange over the given pricer and store.
func New(pricer marketdata.SpotPricer, st *store.Store, feeRate, slippageRate float64) *Exchange {
	if feeRate <= 0 {
		feeRate = DefaultFeeRate
	}
	if slippageRate < 0 {
		slippageRate = DefaultSlippageRate
	}
	return &Exchange{
		pricer:       pricer,
		store:        st,
		feeRate:      feeRate,
		slippageRate: slippageRate,
		logger:       config.NewLogger("paper"),
	}
}

// Result describes the outcome of one Buy/SellAll call.
type Result struct {
	Success       bool
	OrderID       int64
	Symbol        string
	ExecutedPrice float64
	Quantity      float64
	QuoteAmount   float64 // buy notional / sell gross
	Fee           float64
	NetAmount     float64 // sell only
	Message       string
}

// CurrentPrice exposes the adapter's spot price for holding refreshes.
func (e *Exchange) CurrentPrice(ctx context.Context, symbol string) float64 {
	return e.pricer.SpotPrice(ctx, symbol)
}

// Buy spends quoteAmount on symbol at market plus slippage. A limitPrice
// of 0 means market order; a limit order stays unfilled when the slipped
// price exceeds the limit.
func (e *Exchange) Buy(ctx context.Context, symbol string, quoteAmount, limitPrice float64, metadata map[string]interface{}) (Result, error) {
	orderType := "market"
	if limitPrice > 0 {
		orderType = "limit"
	}

	market := e.pricer.SpotPrice(ctx, symbol)
	if market <= 0 {
		return e.record(Result{Symbol: symbol, QuoteAmount: quoteAmount, Message: "Price unavailable"},
			"buy", orderType, "rejected", limitPrice, metadata)
	}

	execPrice := market * (1 + e.slippageRate)
	if limitPrice > 0 && execPrice > limitPrice {
		return e.record(Result{Symbol: symbol, QuoteAmount: quoteAmount, Message: "Limit not reached"},
			"buy", "limit", "unfilled", limitPrice, metadata)
	}

	qty := quoteAmount / execPrice
	fee := quoteAmount * e.feeRate

	return e.record(Result{
		Success:       true,
		Symbol:        symbol,
		ExecutedPrice: execPrice,
		Quantity:      qty,
		QuoteAmount:   quoteAmount,
		Fee:           fee,
		Message:       "Filled",
	}, "buy", orderType, "filled", limitPrice, metadata)
}

// SellAll liquidates quantity of symbol at market minus slippage. A limit
// order stays unfilled when the slipped price is below the limit.
func (e *Exchange) SellAll(ctx context.Context, symbol string, quantity, limitPrice float64, metadata map[string]interface{}) (Result, error) {
	orderType := "market"
	if limitPrice > 0 {
		orderType = "limit"
	}

	market := e.pricer.SpotPrice(ctx, symbol)
	if market <= 0 || quantity <= 0 {
		return e.record(Result{Symbol: symbol, Quantity: quantity, Message: "Invalid price or quantity"},
			"sell", orderType, "rejected", limitPrice, metadata)
	}

	execPrice := market * (1 - e.slippageRate)
	if limitPrice > 0 && execPrice < limitPrice {
		return e.record(Result{Symbol: symbol, Quantity: quantity, Message: "Limit not reached"},
			"sell", "limit", "unfilled", limitPrice, metadata)
	}

	gross := quantity * execPrice
	fee := gross * e.feeRate

	return e.record(Result{
		Success:       true,
		Symbol:        symbol,
		ExecutedPrice: execPrice,
		Quantity:      quantity,
		QuoteAmount:   gross,
		Fee:           fee,
		NetAmount:     gross - fee,
		Message:       "Filled",
	}, "sell", orderType, "filled", limitPrice, metadata)
}

// record appends the ledger row for a call and attaches the order id.
// Ledger failures are persistence errors and propagate.
func (e *Exchange) record(r Result, side, orderType, status string, limitPrice float64, metadata map[string]interface{}) (Result, error) {
	id, err := e.store.InsertExecution(store.OrderExecution{
		Symbol:         r.Symbol,
		Side:           side,
		OrderType:      orderType,
		Status:         status,
		RequestedPrice: limitPrice,
		ExecutedPrice:  r.ExecutedPrice,
		Quantity:       r.Quantity,
		QuoteAmount:    r.QuoteAmount,
		FeeAmount:      r.Fee,
		Mode:           "paper",
		Message:        r.Message,
		Metadata:       stringifyMetadata(metadata),
		CreatedAt:      store.Now(),
	})
	if err != nil {
		return Result{}, err
	}
	r.OrderID = id

	e.logger.Info().
		Str("symbol", r.Symbol).
		Str("side", side).
		Str("status", status).
		Float64("executed_price", r.ExecutedPrice).
		Float64("quantity", r.Quantity).
		Float64("fee", r.Fee).
		Msg("Order recorded")

	return r, nil
}

func stringifyMetadata(metadata map[string]interface{}) string {
	if metadata == nil {
		return ""
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(data)
}
