package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/prism-insight/cryptoswing/internal/store"
)

func bareController() *Controller {
	return &Controller{now: func() time.Time { return fixedNow }}
}

func TestRefreshTrailingBelowActivation(t *testing.T) {
	c := bareController()
	blob := map[string]interface{}{}

	stop := c.refreshTrailing(100, 101, 96.4, blob)
	assert.Equal(t, 96.4, stop)
	assert.Equal(t, false, blob["trailing_active"])
	assert.Equal(t, 101.0, blob["trailing_peak_price"])
	assert.Equal(t, 96.4, blob["dynamic_stop_loss"])
}

func TestRefreshTrailingLatchesAtActivation(t *testing.T) {
	c := bareController()
	blob := map[string]interface{}{}

	// exactly +3% latches; 2.5% buffer below the 8% tier
	stop := c.refreshTrailing(100, 103, 96.4, blob)
	assert.Equal(t, true, blob["trailing_active"])
	assert.InDelta(t, 103*0.975, stop, 1e-9)
	assert.InDelta(t, 2.5, blob["trail_buffer_pct"].(float64), 1e-9)
}

func TestRefreshTrailingBufferTiers(t *testing.T) {
	c := bareController()

	blob := map[string]interface{}{}
	stop := c.refreshTrailing(100, 110, 90, blob)
	// profit 10% -> 3% buffer
	assert.InDelta(t, 110*0.97, stop, 1e-9)

	blob = map[string]interface{}{}
	stop = c.refreshTrailing(100, 118, 90, blob)
	// profit 18% -> 4% buffer
	assert.InDelta(t, 118*0.96, stop, 1e-9)
}

func TestRefreshTrailingBufferTightensOnPullback(t *testing.T) {
	c := bareController()
	blob := map[string]interface{}{
		"trailing_active":     true,
		"trailing_peak_price": 116.0,
	}

	// peak gain is 16% but the live profit is 12%, so the buffer drops
	// back to the 3% tier and the trail off the old peak sits at 112.52
	stop := c.refreshTrailing(100, 112, 96.4, blob)
	assert.InDelta(t, 116*0.97, stop, 1e-9)
	assert.InDelta(t, 3.0, blob["trail_buffer_pct"].(float64), 1e-9)
	assert.Equal(t, 116.0, blob["trailing_peak_price"])
}

func TestRefreshTrailingStickyAfterPullback(t *testing.T) {
	c := bareController()
	blob := map[string]interface{}{
		"trailing_active":     true,
		"trailing_peak_price": 110.0,
	}

	// price back near breakeven: latch holds and the trail still hangs
	// off the old peak, at the tightest buffer
	stop := c.refreshTrailing(100, 100.5, 96.4, blob)
	assert.Equal(t, true, blob["trailing_active"])
	assert.InDelta(t, 110*0.975, stop, 1e-9)
}

func TestRefreshTrailingBaseStopWins(t *testing.T) {
	c := bareController()
	blob := map[string]interface{}{
		"trailing_active":     true,
		"trailing_peak_price": 104.0,
	}

	// trail 101.4 sits below the 102 base stop
	stop := c.refreshTrailing(100, 103, 102, blob)
	assert.Equal(t, 102.0, stop)
}

func TestRefreshTrailingInvalidPrice(t *testing.T) {
	c := bareController()
	blob := map[string]interface{}{}

	assert.Equal(t, 96.4, c.refreshTrailing(100, 0, 96.4, blob))
	assert.Equal(t, 96.4, c.refreshTrailing(0, 100, 96.4, blob))
}

func TestSellDecisionPriorities(t *testing.T) {
	tests := []struct {
		name    string
		buy     float64
		current float64
		target  float64
		stop    float64
		blob    map[string]interface{}
		hours   float64
		sell    bool
		reason  string
	}{
		{
			name: "hard stop", buy: 100, current: 93.953, target: 120, stop: 93.953,
			blob: map[string]interface{}{}, hours: 10,
			sell: true, reason: "stop loss reached (93.953000 <= 93.953000)",
		},
		{
			name: "trailing stop", buy: 100, current: 104.5, target: 120, stop: 104.76,
			blob: map[string]interface{}{"trailing_active": true, "dynamic_stop_loss": 104.76}, hours: 10,
			sell: true, reason: "trailing stop reached (104.500000 <= 104.760000)",
		},
		{
			name: "target", buy: 100, current: 120.5, target: 120, stop: 96.4,
			blob: map[string]interface{}{}, hours: 10,
			sell: true, reason: "target reached (120.500000 >= 120.000000)",
		},
		{
			name: "loss guard without stop", buy: 100, current: 94, target: 120, stop: 0,
			blob: map[string]interface{}{}, hours: 10,
			sell: true, reason: "loss guard triggered (-6.00%)",
		},
		{
			name: "time take-profit", buy: 100, current: 105, target: 120, stop: 96.4,
			blob: map[string]interface{}{}, hours: 80,
			sell: true, reason: "time-based take-profit (80.0h, 5.00%)",
		},
		{
			name: "stale loser", buy: 100, current: 98, target: 120, stop: 96.4,
			blob: map[string]interface{}{}, hours: 170,
			sell: true, reason: "stale losing position cleanup (170.0h, -2.00%)",
		},
		{
			name: "hold", buy: 100, current: 101, target: 120, stop: 96.4,
			blob: map[string]interface{}{}, hours: 10,
			sell: false, reason: "hold",
		},
		{
			name: "invalid price holds", buy: 100, current: 0, target: 120, stop: 96.4,
			blob: map[string]interface{}{}, hours: 10,
			sell: false, reason: "hold",
		},
		{
			name: "old winner below threshold holds", buy: 100, current: 102, target: 120, stop: 96.4,
			blob: map[string]interface{}{}, hours: 100,
			sell: false, reason: "hold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sell, reason := sellDecision(tt.buy, tt.current, tt.target, tt.stop, tt.blob, tt.hours)
			assert.Equal(t, tt.sell, sell)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestClassifyExit(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"rotation replace: AVAX-USD (score=0.400, pnl=-3.00%, hold=10.0h) -> NEAR-USD (score=0.600)", "rotation"},
		{"stop loss reached (93.953000 <= 93.953000)", "stop_loss"},
		{"trailing stop reached (104.500000 <= 104.760000)", "stop_loss"},
		{"loss guard triggered (-6.00%)", "stop_loss"},
		{"target reached (120.500000 >= 120.000000)", "normal"},
		{"time-based take-profit (80.0h, 5.00%)", "normal"},
		{"stale losing position cleanup (170.0h, -2.00%)", "normal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyExit(tt.reason), tt.reason)
	}
}

func TestHoldingScoreFallbacks(t *testing.T) {
	assert.Equal(t, 0.7, holdingScore(map[string]interface{}{"phase1_final_score": 0.7}))
	assert.Equal(t, 0.6, holdingScore(map[string]interface{}{"final_score": 0.6}))
	assert.InDelta(t, 0.2, holdingScore(map[string]interface{}{"risk_reward_ratio": 2.0}), 1e-9)
	assert.Equal(t, 0.0, holdingScore(map[string]interface{}{}))
	// preferred key wins over later fallbacks
	assert.Equal(t, 0.3, holdingScore(map[string]interface{}{
		"phase1_final_score": 0.3,
		"final_score":        0.9,
	}))
}

func TestReentryCooldownDisabled(t *testing.T) {
	st, err := store.Open(":memory:")
	assert.NoError(t, err)
	defer st.Close()

	c := bareController()
	c.store = st

	active, reason, err := c.reentryCooldown("BTC-USD")
	assert.NoError(t, err)
	assert.False(t, active)
	assert.Empty(t, reason)
}

func TestHoldingHours(t *testing.T) {
	c := bareController()
	assert.InDelta(t, 10.0, c.holdingHours(store.FormatTime(fixedNow.Add(-10*time.Hour))), 1e-9)
	assert.Equal(t, 0.0, c.holdingHours("not a date"))
	// future buy date clamps to zero
	assert.Equal(t, 0.0, c.holdingHours(store.FormatTime(fixedNow.Add(time.Hour))))
}

func TestBlobHelpers(t *testing.T) {
	blob := map[string]interface{}{
		"f":    1.5,
		"num":  "2.25",
		"bad":  "nope",
		"b1":   true,
		"b2":   "true",
		"b3":   1.0,
		"zero": 0.0,
	}

	assert.Equal(t, 1.5, blobFloat(blob, "f", 0))
	assert.Equal(t, 2.25, blobFloat(blob, "num", 0))
	assert.Equal(t, 9.0, blobFloat(blob, "bad", 9))
	assert.Equal(t, 9.0, blobFloat(blob, "missing", 9))

	assert.True(t, blobBool(blob, "b1"))
	assert.True(t, blobBool(blob, "b2"))
	assert.True(t, blobBool(blob, "b3"))
	assert.False(t, blobBool(blob, "zero"))
	assert.False(t, blobBool(blob, "missing"))
}

func TestParseScenarioBlobTolerance(t *testing.T) {
	assert.Empty(t, parseScenarioBlob(""))
	assert.Empty(t, parseScenarioBlob("not json"))
	assert.Empty(t, parseScenarioBlob("null"))
	assert.Equal(t, map[string]interface{}{"a": 1.0}, parseScenarioBlob(`{"a":1}`))
}
