package oracle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-insight/cryptoswing/internal/trigger"
)

func TestParseScenarioRejectsNonObjects(t *testing.T) {
	for _, input := range []string{"", "[]", `"entry"`, "not json", "42"} {
		_, err := ParseScenario([]byte(input))
		assert.Error(t, err, "input %q", input)
	}
}

func TestParseScenarioTypedFields(t *testing.T) {
	s, err := ParseScenario([]byte(`{
		"buy_score": 8,
		"min_score": 7,
		"decision": "entry",
		"target_price": 107.2,
		"stop_loss": 96.4,
		"risk_reward_ratio": 2.0,
		"expected_return_pct": 7.2,
		"expected_loss_pct": 3.6,
		"investment_period": "short",
		"rationale": "Momentum with volume",
		"theme": "Major",
		"market_condition": "bullish",
		"trading_scenarios": {"sell_triggers": ["stop"]}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 8, s.BuyScore)
	assert.Equal(t, 7, s.MinScore)
	assert.Equal(t, "entry", s.Decision)
	assert.Equal(t, 107.2, s.TargetPrice)
	assert.Equal(t, 96.4, s.StopLoss)
	assert.Equal(t, 2.0, s.RiskRewardRatio)
	assert.Equal(t, "bullish", s.MarketCondition)
	assert.Contains(t, s.TradingScenarios, "sell_triggers")
	assert.Nil(t, s.Extra)
}

func TestParseScenarioMinScoreDefaultsOnlyWhenAbsent(t *testing.T) {
	s, err := ParseScenario([]byte(`{"buy_score": 3}`))
	require.NoError(t, err)
	assert.Equal(t, 6, s.MinScore)

	s, err = ParseScenario([]byte(`{"buy_score": 3, "min_score": 0}`))
	require.NoError(t, err)
	assert.Equal(t, 0, s.MinScore)
}

func TestParseScenarioCoercesStringNumbers(t *testing.T) {
	s, err := ParseScenario([]byte(`{"buy_score": "7", "target_price": " 105.5 "}`))
	require.NoError(t, err)
	assert.Equal(t, 7, s.BuyScore)
	assert.Equal(t, 105.5, s.TargetPrice)
}

func TestParseScenarioPreservesUnknownKeys(t *testing.T) {
	s, err := ParseScenario([]byte(`{"buy_score": 5, "model_notes": "fresh breakout", "confidence": 0.8}`))
	require.NoError(t, err)

	require.NotNil(t, s.Extra)
	assert.Equal(t, "fresh breakout", s.Extra["model_notes"])
	assert.Equal(t, 0.8, s.Extra["confidence"])

	// unknown keys survive re-serialization
	data, err := json.Marshal(s)
	require.NoError(t, err)
	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "fresh breakout", wire["model_notes"])
}

func TestNormalizeBackfillsFromCandidate(t *testing.T) {
	c := trigger.Candidate{
		Symbol:          "SOL-USD",
		CurrentPrice:    150,
		TargetPrice:     160.5,
		StopLossPrice:   144,
		TargetPct:       7.0,
		StopLossPct:     4.0,
		RiskRewardRatio: 1.75,
	}

	s := Scenario{Decision: "  ENTRY "}
	s.Normalize("SOL-USD", c)

	assert.Equal(t, "entry", s.Decision)
	assert.Equal(t, 160.5, s.TargetPrice)
	assert.Equal(t, 144.0, s.StopLoss)
	assert.Equal(t, 1.75, s.RiskRewardRatio)
	assert.Equal(t, 7.0, s.ExpectedReturnPct)
	assert.Equal(t, 4.0, s.ExpectedLossPct)
	assert.Equal(t, "L1", s.Theme)
	assert.Equal(t, "short", s.InvestmentPeriod)
	assert.Equal(t, "sideways", s.MarketCondition)
	assert.Equal(t, "No rationale", s.Rationale)
	assert.NotNil(t, s.TradingScenarios)
}

func TestNormalizeInvalidDecisionBecomesNoEntry(t *testing.T) {
	for _, decision := range []string{"buy", "hold", "", "ENTRY NOW"} {
		s := Scenario{Decision: decision}
		s.Normalize("BTC-USD", trigger.Candidate{})
		assert.Equal(t, "no_entry", s.Decision, "decision %q", decision)
	}
}

func TestDefaultScenario(t *testing.T) {
	s := DefaultScenario()
	assert.Equal(t, 0, s.BuyScore)
	assert.Equal(t, 6, s.MinScore)
	assert.Equal(t, "no_entry", s.Decision)
	assert.Equal(t, "Analysis failed", s.Rationale)
	assert.Contains(t, s.TradingScenarios, "key_levels")
}
