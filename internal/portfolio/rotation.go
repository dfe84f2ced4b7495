package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/prism-insight/cryptoswing/internal/oracle"
	"github.com/prism-insight/cryptoswing/internal/paper"
	"github.com/prism-insight/cryptoswing/internal/store"
	"github.com/prism-insight/cryptoswing/internal/trigger"
)

// reentryCooldown checks whether symbol sold recently enough that a new
// entry is still blocked. A zero cool-down window disables the check.
func (c *Controller) reentryCooldown(symbol string) (bool, string, error) {
	if c.opts.ReentryCooldownHours <= 0 {
		return false, "", nil
	}

	lastSell, err := c.store.LastSellDate(symbol)
	if errors.Is(err, store.ErrNotFound) {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}

	soldAt, err := store.ParseTime(lastSell)
	if err != nil {
		return false, "", nil
	}

	elapsed := c.now().Sub(soldAt).Hours()
	if elapsed >= c.opts.ReentryCooldownHours {
		return false, "", nil
	}

	remaining := c.opts.ReentryCooldownHours - elapsed
	reason := fmt.Sprintf("re-entry cooldown active (%.2fh remaining, window=%.2fh)",
		remaining, c.opts.ReentryCooldownHours)
	return true, reason, nil
}

// rankedHolding carries the rotation view of one open position.
type rankedHolding struct {
	holding store.Holding
	blob    map[string]interface{}
	score   float64
	profit  float64
	hours   float64
}

// holdingScore recovers the entry-time final score from the scenario
// blob, degrading to the composite-era key and then a risk-reward proxy.
func holdingScore(blob map[string]interface{}) float64 {
	if score := blobFloat(blob, "phase1_final_score", -1); score >= 0 {
		return score
	}
	if score := blobFloat(blob, "final_score", -1); score >= 0 {
		return score
	}
	score := blobFloat(blob, "risk_reward_ratio", 0) / 10
	if score < 0 {
		return 0
	}
	return score
}

// tryRotationEntry replaces the weakest eligible holding with the new
// candidate. Returns rotated, the block/failure reason when not rotated,
// and the number of positions sold on the way (a sell that completes
// counts even when the follow-up buy fails).
func (c *Controller) tryRotationEntry(ctx context.Context, symbol, triggerType string, item trigger.Candidate, scenario oracle.Scenario) (bool, string, int, error) {
	holdings, err := c.store.ListHoldings()
	if err != nil {
		return false, "", 0, err
	}
	if len(holdings) == 0 {
		return false, "no holdings to rotate", 0, nil
	}

	newFinal := item.FinalScore

	ranked := make([]rankedHolding, 0, len(holdings))
	for _, h := range holdings {
		blob := parseScenarioBlob(h.Scenario)
		profit := 0.0
		if h.BuyPrice > 0 && h.CurrentPrice > 0 {
			profit = (h.CurrentPrice - h.BuyPrice) / h.BuyPrice * 100
		}
		ranked = append(ranked, rankedHolding{
			holding: h,
			blob:    blob,
			score:   holdingScore(blob),
			profit:  profit,
			hours:   c.holdingHours(h.BuyDate),
		})
	}

	// A holding is a rotation target only when it has aged past the
	// minimum hold and the incoming score clears its score plus delta.
	eligible := make([]rankedHolding, 0, len(ranked))
	for _, r := range ranked {
		if r.hours >= RotationMinHoldingHours && newFinal >= r.score+RotationMinScoreDelta {
			eligible = append(eligible, r)
		}
	}

	if len(eligible) == 0 {
		freshest := rankedHolding{hours: -1}
		for _, r := range ranked {
			if r.hours < RotationMinHoldingHours && (freshest.hours < 0 || r.hours < freshest.hours) {
				freshest = r
			}
		}
		if freshest.hours >= 0 {
			reason := fmt.Sprintf("rotation blocked: min holding %.1fh (freshest %s=%.2fh)",
				RotationMinHoldingHours, freshest.holding.Symbol, freshest.hours)
			return false, reason, 0, nil
		}

		weakest := ranked[0]
		for _, r := range ranked[1:] {
			if r.score < weakest.score {
				weakest = r
			}
		}
		reason := fmt.Sprintf("rotation blocked: new_final=%.3f < weakest+delta (%.3f+%.2f)",
			newFinal, weakest.score, RotationMinScoreDelta)
		return false, reason, 0, nil
	}

	// Weakest first among the eligible: losers before winners, deep
	// losers before shallow ones, then by profit and entry score.
	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		aGain, bGain := a.profit >= 0, b.profit >= 0
		if aGain != bGain {
			return !aGain
		}
		aDeep, bDeep := a.profit <= RotationLossPriorityPct, b.profit <= RotationLossPriorityPct
		if aDeep != bDeep {
			return aDeep
		}
		if a.profit != b.profit {
			return a.profit < b.profit
		}
		return a.score < b.score
	})

	weakest := eligible[0]

	sellReason := fmt.Sprintf("rotation replace: %s (score=%.3f, pnl=%.2f%%, hold=%.1fh) -> %s (score=%.3f)",
		weakest.holding.Symbol, weakest.score, weakest.profit, weakest.hours, symbol, newFinal)

	ok, err := c.sellHolding(ctx, weakest.holding, sellReason, weakest.blob)
	if err != nil {
		return false, "", 0, err
	}
	if !ok {
		return false, fmt.Sprintf("rotation sell failed for %s", weakest.holding.Symbol), 0, nil
	}

	var execution *paper.Result
	if c.opts.ExecuteTrades {
		if c.trader == nil {
			return false, "paper trader not initialized", 1, nil
		}
		res, err := c.trader.Buy(ctx, symbol, c.opts.QuoteAmount, 0, map[string]interface{}{
			"trigger_type": triggerType,
			"rotation":     "true",
		})
		if err != nil {
			return false, "", 1, err
		}
		if !res.Success {
			reason := fmt.Sprintf("paper buy failed after rotation: %s", res.Message)
			return false, reason, 1, nil
		}
		execution = &res
	}

	if err := c.saveHolding(symbol, triggerType, item, scenario, execution); err != nil {
		return false, "", 1, err
	}

	c.logger.Info().
		Str("out", weakest.holding.Symbol).
		Str("in", symbol).
		Float64("out_score", weakest.score).
		Float64("in_score", newFinal).
		Msg("ROTATION")

	return true, "", 1, nil
}
