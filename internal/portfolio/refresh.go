package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prism-insight/cryptoswing/internal/metrics"
	"github.com/prism-insight/cryptoswing/internal/store"
)

// updateHoldings refreshes every open position with a live price, moves
// the trailing state machine, evaluates the exit rules and executes any
// resulting sell. Returns the number of positions closed.
func (c *Controller) updateHoldings(ctx context.Context) (int, error) {
	holdings, err := c.store.ListHoldings()
	if err != nil {
		return 0, err
	}

	sold := 0
	for _, h := range holdings {
		current := h.CurrentPrice
		if c.trader != nil {
			if live := c.trader.CurrentPrice(ctx, h.Symbol); live > 0 {
				current = live
			}
		}

		blob := parseScenarioBlob(h.Scenario)
		effectiveStop := c.refreshTrailing(h.BuyPrice, current, h.StopLoss, blob)
		hours := c.holdingHours(h.BuyDate)

		shouldSell, reason := sellDecision(h.BuyPrice, current, h.TargetPrice, effectiveStop, blob, hours)

		if err := c.recordDecision(h.Symbol, current, shouldSell, reason, effectiveStop, blob, hours); err != nil {
			c.logger.Warn().Err(err).Str("symbol", h.Symbol).Msg("Failed to record holding decision")
		}

		if shouldSell {
			h.CurrentPrice = current
			h.StopLoss = effectiveStop
			ok, err := c.sellHolding(ctx, h, reason, blob)
			if err != nil {
				return sold, err
			}
			if ok {
				sold++
			}
			continue
		}

		scenarioJSON := marshalScenarioBlob(blob, h.Scenario)
		err = c.store.UpdateHoldingRefresh(h.Symbol, current, effectiveStop, scenarioJSON, store.FormatTime(c.now()))
		if err != nil {
			return sold, err
		}
	}

	return sold, nil
}

// refreshTrailing advances the trailing-stop state inside the scenario
// blob and returns the effective stop for this cycle. Trailing latches
// on once profit reaches the activation threshold and never unlatches.
func (c *Controller) refreshTrailing(buyPrice, current, baseStop float64, blob map[string]interface{}) float64 {
	if buyPrice <= 0 || current <= 0 {
		return baseStop
	}

	peak := blobFloat(blob, "trailing_peak_price", buyPrice)
	if peak < buyPrice {
		peak = buyPrice
	}
	if current > peak {
		peak = current
	}
	blob["trailing_peak_price"] = peak

	trailing := blobBool(blob, "trailing_active")
	profit := (current - buyPrice) / buyPrice * 100
	if !trailing && profit >= TrailingActivationPct {
		trailing = true
	}
	blob["trailing_active"] = trailing

	if !trailing {
		blob["dynamic_stop_loss"] = baseStop
		return baseStop
	}

	// Buffer tiers follow the live profit rate, not the peak gain.
	buffer := 0.025
	switch {
	case profit >= 15:
		buffer = 0.04
	case profit >= 8:
		buffer = 0.03
	}

	trail := peak * (1 - buffer)
	effective := trail
	if baseStop > 0 && baseStop > trail {
		effective = baseStop
	}

	blob["dynamic_stop_loss"] = effective
	blob["trail_buffer_pct"] = buffer * 100
	return effective
}

// sellDecision applies the exit rules in priority order. An invalid
// price context always holds.
func sellDecision(buyPrice, current, target, stop float64, blob map[string]interface{}, hours float64) (bool, string) {
	if buyPrice <= 0 || current <= 0 {
		return false, "hold"
	}

	profit := (current - buyPrice) / buyPrice * 100

	if stop > 0 && current <= stop {
		if blobBool(blob, "trailing_active") && blobFloat(blob, "dynamic_stop_loss", 0) > 0 {
			return true, fmt.Sprintf("trailing stop reached (%.6f <= %.6f)", current, stop)
		}
		return true, fmt.Sprintf("stop loss reached (%.6f <= %.6f)", current, stop)
	}
	if target > 0 && current >= target {
		return true, fmt.Sprintf("target reached (%.6f >= %.6f)", current, target)
	}
	if profit <= LossGuardPct {
		return true, fmt.Sprintf("loss guard triggered (%.2f%%)", profit)
	}
	if hours >= TimeTakeProfitHours && profit >= TimeTakeProfitMinPct {
		return true, fmt.Sprintf("time-based take-profit (%.1fh, %.2f%%)", hours, profit)
	}
	if hours >= StaleCleanupHours && profit < 0 {
		return true, fmt.Sprintf("stale losing position cleanup (%.1fh, %.2f%%)", hours, profit)
	}

	return false, "hold"
}

// classifyExit maps a sell reason onto its accounting category.
func classifyExit(reason string) string {
	if strings.Contains(reason, "rotation replace:") {
		return "rotation"
	}
	if strings.Contains(reason, "stop loss") ||
		strings.Contains(reason, "trailing stop") ||
		strings.Contains(reason, "loss guard") {
		return "stop_loss"
	}
	return "normal"
}

// sellHolding closes one position: paper sell when trades execute, then
// the history row, the holding delete and the cycle counters. A failed
// paper order keeps the holding open.
func (c *Controller) sellHolding(ctx context.Context, h store.Holding, reason string, blob map[string]interface{}) (bool, error) {
	category := classifyExit(reason)

	quantity := h.Quantity
	if quantity <= 0 && h.BuyPrice > 0 && h.NotionalUSD > 0 {
		quantity = h.NotionalUSD / h.BuyPrice
	}

	execPrice := h.CurrentPrice
	if c.opts.ExecuteTrades && c.trader != nil {
		res, err := c.trader.SellAll(ctx, h.Symbol, quantity, 0, map[string]interface{}{
			"reason":        reason,
			"exit_category": category,
		})
		if err != nil {
			return false, err
		}
		if !res.Success {
			c.logger.Warn().
				Str("symbol", h.Symbol).
				Str("message", res.Message).
				Msg("Paper sell failed, keeping holding")
			return false, nil
		}
		if res.ExecutedPrice > 0 {
			execPrice = res.ExecutedPrice
		}
	}

	profitRate := 0.0
	if h.BuyPrice > 0 && execPrice > 0 {
		profitRate = (execPrice - h.BuyPrice) / h.BuyPrice * 100
	}
	hours := c.holdingHours(h.BuyDate)

	err := c.store.InsertTradeHistory(store.TradeHistory{
		Symbol:       h.Symbol,
		AssetName:    h.AssetName,
		BuyPrice:     h.BuyPrice,
		BuyDate:      h.BuyDate,
		Quantity:     quantity,
		NotionalUSD:  h.NotionalUSD,
		SellPrice:    execPrice,
		SellDate:     store.FormatTime(c.now()),
		ProfitRate:   profitRate,
		HoldingHours: hours,
		Scenario:     marshalScenarioBlob(blob, h.Scenario),
		TriggerType:  h.TriggerType,
		Timeframe:    h.Timeframe,
		Theme:        h.Theme,
	})
	if err != nil {
		return false, err
	}
	if err := c.store.DeleteHolding(h.Symbol); err != nil {
		return false, err
	}

	c.exitCounts[category]++
	metrics.Exits.WithLabelValues(category).Inc()

	c.logger.Info().
		Str("symbol", h.Symbol).
		Str("reason", reason).
		Str("category", category).
		Float64("sell_price", execPrice).
		Float64("profit_rate", profitRate).
		Float64("holding_hours", hours).
		Msg("SELL")

	return true, nil
}

// recordDecision appends the audit row for one sell evaluation.
func (c *Controller) recordDecision(symbol string, current float64, shouldSell bool, reason string, effectiveStop float64, blob map[string]interface{}, hours float64) error {
	now := c.now()

	detail := map[string]interface{}{
		"reason":          reason,
		"current_price":   current,
		"effective_stop":  effectiveStop,
		"trailing_active": blobBool(blob, "trailing_active"),
		"holding_hours":   hours,
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		return err
	}

	confidence := 0
	if shouldSell {
		confidence = 10
	}

	return c.store.InsertHoldingDecision(store.HoldingDecision{
		Symbol:       symbol,
		DecisionDate: now.In(time.Local).Format("2006-01-02"),
		DecisionTime: store.FormatTime(now),
		CurrentPrice: current,
		ShouldSell:   shouldSell,
		SellReason:   reason,
		Confidence:   confidence,
		FullJSONData: string(payload),
	})
}

// holdingHours returns the position age in hours, 0 when the stored
// buy date is unparseable.
func (c *Controller) holdingHours(buyDate string) float64 {
	t, err := store.ParseTime(buyDate)
	if err != nil {
		return 0
	}
	hours := c.now().Sub(t).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

// parseScenarioBlob tolerantly decodes a stored scenario, returning an
// empty map when the blob is missing or corrupt.
func parseScenarioBlob(s string) map[string]interface{} {
	if s == "" {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return map[string]interface{}{}
	}
	return m
}

// marshalScenarioBlob re-serializes the blob, falling back to the prior
// stored form if marshalling fails.
func marshalScenarioBlob(blob map[string]interface{}, prior string) string {
	data, err := json.Marshal(blob)
	if err != nil {
		if prior != "" {
			return prior
		}
		return "{}"
	}
	return string(data)
}

func blobFloat(blob map[string]interface{}, key string, def float64) float64 {
	v, ok := blob[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return def
}

func blobBool(blob map[string]interface{}, key string) bool {
	v, ok := blob[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t == "true" || t == "1"
	}
	return false
}
