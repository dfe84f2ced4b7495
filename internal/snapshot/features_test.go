package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-insight/cryptoswing/internal/marketdata"
)

// flatBars builds n bars at a constant price with a fixed 2.0 true range.
func flatBars(n int, price, volume float64) []marketdata.Bar {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]marketdata.Bar, n)
	for i := range bars {
		bars[i] = marketdata.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    volume,
		}
	}
	return bars
}

func TestComputeRowInsufficientHistory(t *testing.T) {
	_, err := ComputeRow("BTC-USD", flatBars(MinBars-1, 100, 10))
	assert.Error(t, err)
}

func TestComputeRowFlatSeries(t *testing.T) {
	row, err := ComputeRow("BTC-USD", flatBars(80, 100, 10))
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", row.Symbol)
	assert.Equal(t, 100.0, row.Close)
	assert.Equal(t, 1000.0, row.Amount)
	assert.InDelta(t, 0.0, row.Ret1Pct, 1e-9)
	assert.InDelta(t, 0.0, row.Ret4Pct, 1e-9)
	assert.InDelta(t, 1.0, row.VolumeRatio20, 1e-9)
	assert.InDelta(t, 0.02, row.ATRPct, 1e-9)
	assert.InDelta(t, 1.0, row.ATRExpansion, 1e-9)
	assert.InDelta(t, 0.0, row.TrendGapPct, 1e-9)
	// flat closes never clear the prior 20-bar high of close+1
	assert.InDelta(t, (100.0/101.0-1)*100, row.BreakoutPct, 1e-9)
	assert.False(t, row.EMA20GtEMA50)
}

func TestComputeRowMomentumBar(t *testing.T) {
	bars := flatBars(80, 100, 10)
	last := &bars[79]
	last.Close = 102
	last.High = 103
	last.Volume = 30

	row, err := ComputeRow("ETH-USD", bars)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, row.Ret1Pct, 1e-9)
	assert.InDelta(t, 2.0, row.Ret4Pct, 1e-9)
	// 19 bars at 10 plus the 30-volume spike
	assert.InDelta(t, 30.0/11.0, row.VolumeRatio20, 1e-9)
	// prior 20-bar high is 101, so the spike is a breakout
	assert.InDelta(t, (102.0/101.0-1)*100, row.BreakoutPct, 1e-9)
	assert.True(t, row.EMA20GtEMA50)
	assert.True(t, row.BreakoutPct > 0)
}

func TestComputeRowNonPositiveClose(t *testing.T) {
	bars := flatBars(80, 100, 10)
	bars[79].Close = 0

	_, err := ComputeRow("BAD-USD", bars)
	assert.Error(t, err)
}

func TestBreakoutPctShortHistory(t *testing.T) {
	assert.Equal(t, invalidBreakout, breakoutPct(flatBars(10, 100, 1)))
}

func TestATRExpansionReactsToRangeWidening(t *testing.T) {
	bars := flatBars(80, 100, 10)
	// widen the last bar's range well beyond the 2.0 baseline
	bars[79].High = 110
	bars[79].Low = 95

	row, err := ComputeRow("SOL-USD", bars)
	require.NoError(t, err)
	assert.Greater(t, row.ATRExpansion, 1.0)
	assert.Greater(t, row.ATRPct, 0.02)
}
