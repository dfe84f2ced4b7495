package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-insight/cryptoswing/internal/snapshot"
)

func row(symbol string, mut func(*snapshot.Row)) snapshot.Row {
	r := snapshot.Row{
		Symbol:        symbol,
		Close:         100,
		Volume:        1000,
		Amount:        100000,
		Ret1Pct:       0.5,
		Ret4Pct:       1.0,
		VolumeRatio20: 1.5,
		ATRPct:        0.03,
		ATRExpansion:  1.1,
		TrendGapPct:   0.8,
		BreakoutPct:   0.2,
		EMA20GtEMA50:  true,
		Theme:         "Major",
	}
	if mut != nil {
		mut(&r)
	}
	return r
}

func TestVolumeMomentumGates(t *testing.T) {
	th := DefaultThresholds()

	rows := []snapshot.Row{
		row("PASS-USD", nil),
		row("LOWVOL-USD", func(r *snapshot.Row) { r.VolumeRatio20 = 1.0 }),
		row("WEAKRET-USD", func(r *snapshot.Row) { r.Ret1Pct = 0.05 }),
		row("DOWNTREND-USD", func(r *snapshot.Row) { r.EMA20GtEMA50 = false }),
	}

	scored := EvaluateVolumeMomentum(rows, th, DefaultTopN)
	require.Len(t, scored, 1)
	assert.Equal(t, "PASS-USD", scored[0].Symbol)
}

func TestVolatilityTrendGates(t *testing.T) {
	th := DefaultThresholds()

	rows := []snapshot.Row{
		row("PASS-USD", func(r *snapshot.Row) { r.ATRExpansion = 1.2 }),
		row("QUIET-USD", func(r *snapshot.Row) { r.ATRExpansion = 0.8 }),
		row("WEAKRET4-USD", func(r *snapshot.Row) { r.Ret4Pct = 0.1 }),
	}

	scored := EvaluateVolatilityTrend(rows, th, DefaultTopN)
	require.Len(t, scored, 1)
	assert.Equal(t, "PASS-USD", scored[0].Symbol)
}

func TestRangeBreakoutGates(t *testing.T) {
	th := DefaultThresholds()

	rows := []snapshot.Row{
		row("PASS-USD", nil),
		row("NOBREAK-USD", func(r *snapshot.Row) { r.BreakoutPct = -0.2 }),
		row("NODATA-USD", func(r *snapshot.Row) { r.BreakoutPct = -999 }),
		row("REDBAR-USD", func(r *snapshot.Row) { r.Ret1Pct = -0.1 }),
	}

	scored := EvaluateRangeBreakout(rows, th, DefaultTopN)
	require.Len(t, scored, 1)
	assert.Equal(t, "PASS-USD", scored[0].Symbol)
}

func TestConstantColumnsNormalizeToZero(t *testing.T) {
	// a single matching row leaves every column constant
	scored := EvaluateVolumeMomentum([]snapshot.Row{row("ONLY-USD", nil)}, DefaultThresholds(), DefaultTopN)
	require.Len(t, scored, 1)
	assert.Equal(t, 0.0, scored[0].CompositeScore)
}

func TestCompositeRankingAndTopN(t *testing.T) {
	th := DefaultThresholds()
	rows := []snapshot.Row{
		row("A-USD", func(r *snapshot.Row) { r.VolumeRatio20 = 3.0 }),
		row("B-USD", func(r *snapshot.Row) { r.VolumeRatio20 = 2.0 }),
		row("C-USD", func(r *snapshot.Row) { r.VolumeRatio20 = 1.5 }),
	}

	scored := EvaluateVolumeMomentum(rows, th, 2)
	require.Len(t, scored, 2)
	assert.Equal(t, "A-USD", scored[0].Symbol)
	assert.Equal(t, "B-USD", scored[1].Symbol)
	assert.Greater(t, scored[0].CompositeScore, scored[1].CompositeScore)
}

func TestEvaluateFallbackPrefersAlignedTrend(t *testing.T) {
	rows := []snapshot.Row{
		row("TREND-USD", nil),
		row("CHOP-USD", func(r *snapshot.Row) { r.EMA20GtEMA50 = false }),
	}

	scored := EvaluateFallback(rows, DefaultTopN)
	require.Len(t, scored, 1)
	assert.Equal(t, "TREND-USD", scored[0].Symbol)
}

func TestEvaluateFallbackFullSnapshotWhenNoPreference(t *testing.T) {
	rows := []snapshot.Row{
		row("A-USD", func(r *snapshot.Row) { r.EMA20GtEMA50 = false }),
		row("B-USD", func(r *snapshot.Row) { r.EMA20GtEMA50 = false; r.Amount = 200000 }),
	}

	scored := EvaluateFallback(rows, DefaultTopN)
	require.Len(t, scored, 2)
	assert.Equal(t, "B-USD", scored[0].Symbol)
}
