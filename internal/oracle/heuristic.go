package oracle

import (
	"context"
	"math"

	"github.com/prism-insight/cryptoswing/internal/theme"
	"github.com/prism-insight/cryptoswing/internal/trigger"
)

// HeuristicOracle is the deterministic scenario generator used whenever
// the model is unavailable.
type HeuristicOracle struct{}

// Analyze implements Oracle. Entry when the Phase-1 risk-reward and final
// score both clear conservative floors.
func (h *HeuristicOracle) Analyze(_ context.Context, symbol, _ string, c trigger.Candidate) (Scenario, error) {
	price := c.CurrentPrice
	target := c.TargetPrice
	stop := c.StopLossPrice
	if target == 0 && price > 0 {
		target = price * 1.05
	}
	if stop == 0 && price > 0 {
		stop = price * 0.96
	}

	decision := "no_entry"
	if c.RiskRewardRatio >= 1.6 && c.FinalScore >= 0.45 {
		decision = "entry"
	}

	buyScore := int(math.Round(c.FinalScore * 10))
	if buyScore < 1 {
		buyScore = 1
	}
	if buyScore > 10 {
		buyScore = 10
	}

	var expectedReturn, expectedLoss float64
	if price > 0 {
		expectedReturn = (target - price) / price * 100
		expectedLoss = (price - stop) / price * 100
	}

	scenarioTheme := c.Theme
	if scenarioTheme == "" {
		scenarioTheme = theme.Classify(symbol)
	}

	secondarySupport := 0.0
	if stop > 0 {
		secondarySupport = stop * 0.98
	}
	secondaryResistance := 0.0
	if target > 0 {
		secondaryResistance = target * 1.02
	}

	return Scenario{
		BuyScore:          buyScore,
		MinScore:          5,
		Decision:          decision,
		TargetPrice:       target,
		StopLoss:          stop,
		RiskRewardRatio:   c.RiskRewardRatio,
		ExpectedReturnPct: expectedReturn,
		ExpectedLossPct:   expectedLoss,
		InvestmentPeriod:  "short",
		Rationale:         "Heuristic fallback scenario (LLM unavailable).",
		Theme:             scenarioTheme,
		MarketCondition:   "sideways",
		TradingScenarios: map[string]interface{}{
			"key_levels": map[string]interface{}{
				"primary_support":      stop,
				"secondary_support":    secondarySupport,
				"primary_resistance":   target,
				"secondary_resistance": secondaryResistance,
				"volume_baseline":      "20-bar average volume",
			},
			"sell_triggers": []interface{}{
				"Stop loss reached",
				"Target reached",
				"Time-based exit after momentum fade",
			},
			"hold_conditions": []interface{}{
				"Price remains above support",
				"Volume not collapsing",
			},
			"portfolio_context": "Fallback mode",
		},
	}, nil
}
