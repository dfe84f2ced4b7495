// Package oracle produces per-candidate trading scenarios, either via an
// OpenAI-compatible model or a deterministic heuristic.
package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/prism-insight/cryptoswing/internal/theme"
	"github.com/prism-insight/cryptoswing/internal/trigger"
)

// Scenario is the decision record produced for one candidate.
// Extra carries unknown keys so model output survives persistence intact.
type Scenario struct {
	BuyScore          int
	MinScore          int
	Decision          string // entry | no_entry
	TargetPrice       float64
	StopLoss          float64
	RiskRewardRatio   float64
	ExpectedReturnPct float64
	ExpectedLossPct   float64
	InvestmentPeriod  string // short | medium
	Rationale         string
	Theme             string
	MarketCondition   string
	TradingScenarios  map[string]interface{}
	Extra             map[string]interface{}
}

// DefaultScenario is the conservative record used when analysis failed
// outright.
func DefaultScenario() Scenario {
	return Scenario{
		BuyScore:         0,
		MinScore:         6,
		Decision:         "no_entry",
		InvestmentPeriod: "short",
		Rationale:        "Analysis failed",
		Theme:            "Major",
		MarketCondition:  "sideways",
		TradingScenarios: map[string]interface{}{
			"key_levels":        map[string]interface{}{},
			"sell_triggers":     []interface{}{},
			"hold_conditions":   []interface{}{},
			"portfolio_context": "",
		},
	}
}

// knownKeys are the wire fields parsed into typed Scenario fields.
var knownKeys = map[string]bool{
	"buy_score": true, "min_score": true, "decision": true,
	"target_price": true, "stop_loss": true, "risk_reward_ratio": true,
	"expected_return_pct": true, "expected_loss_pct": true,
	"investment_period": true, "rationale": true, "theme": true,
	"market_condition": true, "trading_scenarios": true,
}

// ParseScenario strictly parses a scenario JSON object. Anything that is
// not a well-formed object is an error; the caller decides the fallback.
func ParseScenario(data []byte) (Scenario, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Scenario{}, fmt.Errorf("scenario is not a JSON object: %w", err)
	}

	s := Scenario{MinScore: 6}

	s.BuyScore = int(coerceNumber(raw["buy_score"], 0))
	if _, ok := raw["min_score"]; ok {
		s.MinScore = int(coerceNumber(raw["min_score"], 6))
	}
	s.Decision = coerceString(raw["decision"])
	s.TargetPrice = coerceNumber(raw["target_price"], 0)
	s.StopLoss = coerceNumber(raw["stop_loss"], 0)
	s.RiskRewardRatio = coerceNumber(raw["risk_reward_ratio"], 0)
	s.ExpectedReturnPct = coerceNumber(raw["expected_return_pct"], 0)
	s.ExpectedLossPct = coerceNumber(raw["expected_loss_pct"], 0)
	s.InvestmentPeriod = coerceString(raw["investment_period"])
	s.Rationale = coerceString(raw["rationale"])
	s.Theme = coerceString(raw["theme"])
	s.MarketCondition = coerceString(raw["market_condition"])

	if ts, ok := raw["trading_scenarios"]; ok {
		var m map[string]interface{}
		if err := json.Unmarshal(ts, &m); err == nil {
			s.TradingScenarios = m
		}
	}

	for key, value := range raw {
		if knownKeys[key] {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(value, &v); err != nil {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]interface{})
		}
		s.Extra[key] = v
	}

	return s, nil
}

// Normalize fills missing or invalid fields from the Phase-1 candidate
// metrics so downstream code always sees a complete record.
func (s *Scenario) Normalize(symbol string, c trigger.Candidate) {
	s.Decision = strings.ToLower(strings.TrimSpace(s.Decision))
	if s.Decision != "entry" && s.Decision != "no_entry" {
		s.Decision = "no_entry"
	}
	if s.TargetPrice == 0 {
		s.TargetPrice = c.TargetPrice
	}
	if s.StopLoss == 0 {
		s.StopLoss = c.StopLossPrice
	}
	if s.RiskRewardRatio == 0 {
		s.RiskRewardRatio = c.RiskRewardRatio
	}
	if s.ExpectedReturnPct == 0 {
		s.ExpectedReturnPct = c.TargetPct
	}
	if s.ExpectedLossPct == 0 {
		s.ExpectedLossPct = c.StopLossPct
	}
	if s.Theme == "" {
		s.Theme = theme.Classify(symbol)
	}
	if s.InvestmentPeriod == "" {
		s.InvestmentPeriod = "short"
	}
	if s.MarketCondition == "" {
		s.MarketCondition = "sideways"
	}
	if s.Rationale == "" {
		s.Rationale = "No rationale"
	}
	if s.TradingScenarios == nil {
		s.TradingScenarios = map[string]interface{}{}
	}
}

// WireMap flattens the scenario to its JSON object form, Extra included.
func (s Scenario) WireMap() map[string]interface{} {
	m := map[string]interface{}{
		"buy_score":           s.BuyScore,
		"min_score":           s.MinScore,
		"decision":            s.Decision,
		"target_price":        s.TargetPrice,
		"stop_loss":           s.StopLoss,
		"risk_reward_ratio":   s.RiskRewardRatio,
		"expected_return_pct": s.ExpectedReturnPct,
		"expected_loss_pct":   s.ExpectedLossPct,
		"investment_period":   s.InvestmentPeriod,
		"rationale":           s.Rationale,
		"theme":               s.Theme,
		"market_condition":    s.MarketCondition,
		"trading_scenarios":   s.TradingScenarios,
	}
	for k, v := range s.Extra {
		m[k] = v
	}
	return m
}

// MarshalJSON renders the wire form.
func (s Scenario) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.WireMap())
}

func coerceNumber(raw json.RawMessage, def float64) float64 {
	if len(raw) == 0 {
		return def
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return def
		}
		return f
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			return f
		}
	}
	return def
}

func coerceString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}
