package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-insight/cryptoswing/internal/snapshot"
)

func scored(symbol string, composite float64, mut func(*snapshot.Row)) Scored {
	return Scored{Row: row(symbol, mut), CompositeScore: composite}
}

func TestApplyAgentFitRiskMath(t *testing.T) {
	c := scored("BTC-USD", 0.5, func(r *snapshot.Row) {
		r.Close = 100
		r.ATRPct = 0.03
		r.VolumeRatio20 = 2.5
	})
	applyAgentFit(&c)

	assert.InDelta(t, 0.036, c.StopLossPct, 1e-9)
	assert.InDelta(t, 0.072, c.TargetPct, 1e-9)
	assert.InDelta(t, 2.0, c.RiskRewardRatio, 1e-9)
	assert.InDelta(t, 96.4, c.StopLossPrice, 1e-9)
	assert.InDelta(t, 107.2, c.TargetPrice, 1e-9)
	// rr score saturates at 1.0, liquidity at vr/2.5
	assert.InDelta(t, 0.65+0.35, c.AgentFitScore, 1e-9)
}

func TestApplyAgentFitClampsStop(t *testing.T) {
	low := scored("A-USD", 0, func(r *snapshot.Row) { r.ATRPct = 0.001 })
	applyAgentFit(&low)
	assert.InDelta(t, 0.02, low.StopLossPct, 1e-9)
	// target floor kicks in: max(0.04, 0.05)
	assert.InDelta(t, 0.05, low.TargetPct, 1e-9)

	high := scored("B-USD", 0, func(r *snapshot.Row) { r.ATRPct = 0.10 })
	applyAgentFit(&high)
	assert.InDelta(t, 0.06, high.StopLossPct, 1e-9)
	assert.InDelta(t, 0.12, high.TargetPct, 1e-9)
}

func TestSelectFinalOnePerTriggerThenPool(t *testing.T) {
	triggers := map[string][]Scored{
		VolumeMomentum: {
			scored("AAA-USD", 0.9, nil),
			scored("BBB-USD", 0.8, nil),
		},
		VolatilityTrend: {
			scored("AAA-USD", 0.7, nil), // duplicate of pass-1 pick
			scored("CCC-USD", 0.6, nil),
		},
		RangeBreakout: {
			scored("DDD-USD", 0.5, nil),
		},
	}

	sel := SelectFinal(triggers, 4)
	require.NotNil(t, sel)

	// pass 1: best unselected symbol per trigger in canonical order
	require.Len(t, sel[VolumeMomentum], 2) // AAA in pass 1, BBB from the pool
	assert.Equal(t, "AAA-USD", sel[VolumeMomentum][0].Symbol)
	require.Len(t, sel[VolatilityTrend], 1)
	assert.Equal(t, "CCC-USD", sel[VolatilityTrend][0].Symbol)
	require.Len(t, sel[RangeBreakout], 1)
	assert.Equal(t, "DDD-USD", sel[RangeBreakout][0].Symbol)

	total := 0
	seen := make(map[string]bool)
	for _, items := range sel {
		for _, c := range items {
			assert.False(t, seen[c.Symbol], "duplicate symbol %s", c.Symbol)
			seen[c.Symbol] = true
			total++
		}
	}
	assert.Equal(t, 4, total)
}

func TestSelectFinalStopsAtCapDuringPassOne(t *testing.T) {
	triggers := map[string][]Scored{
		VolumeMomentum:  {scored("AAA-USD", 0.9, nil)},
		VolatilityTrend: {scored("BBB-USD", 0.8, nil)},
		RangeBreakout:   {scored("CCC-USD", 0.7, nil)},
	}

	sel := SelectFinal(triggers, 2)
	total := 0
	for _, items := range sel {
		total += len(items)
	}
	assert.Equal(t, 2, total)
	assert.Len(t, sel[VolumeMomentum], 1)
	assert.Len(t, sel[VolatilityTrend], 1)
	assert.Empty(t, sel[RangeBreakout])
}

func TestSelectFinalEmptyTriggers(t *testing.T) {
	assert.Nil(t, SelectFinal(map[string][]Scored{}, 3))
}

func TestHybridRankBlendsCompositeAndFit(t *testing.T) {
	candidates := []Scored{
		scored("LOWFIT-USD", 1.0, func(r *snapshot.Row) { r.ATRPct = 0.05; r.VolumeRatio20 = 0.5 }),
		scored("HIGHFIT-USD", 0.0, func(r *snapshot.Row) { r.ATRPct = 0.03; r.VolumeRatio20 = 2.5 }),
	}

	out := hybridRank(candidates)
	require.Len(t, out, 2)

	for _, c := range out {
		assert.InDelta(t, c.CompositeNorm*0.3+c.AgentFitScore*0.7, c.FinalScore, 1e-9)
	}
	// 0.3*1.0 + 0.7*0.72 = 0.804 still beats 0.7*1.0
	assert.Equal(t, "LOWFIT-USD", out[0].Symbol)
	assert.InDelta(t, 0.804, out[0].FinalScore, 1e-9)
}
