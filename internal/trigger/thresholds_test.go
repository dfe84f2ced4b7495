package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prism-insight/cryptoswing/internal/snapshot"
)

func rowsWithExpansion(values ...float64) []snapshot.Row {
	rows := make([]snapshot.Row, len(values))
	for i, v := range values {
		rows[i] = snapshot.Row{Symbol: "X-USD", ATRExpansion: v}
	}
	return rows
}

func TestEffectiveNoTighteningInQuietMarket(t *testing.T) {
	base := DefaultThresholds()
	eff := base.Effective(rowsWithExpansion(0.8, 0.9, 1.0))

	assert.Equal(t, base, eff)
}

func TestEffectiveTightensWithOverheat(t *testing.T) {
	base := DefaultThresholds()
	// median 1.4 -> tighten = 0.4 * 0.25 = 0.1
	eff := base.Effective(rowsWithExpansion(1.2, 1.4, 1.9))

	assert.InDelta(t, 1.20*1.1, eff.VolumeMomentumVolumeRatioMin, 1e-9)
	assert.InDelta(t, 0.15*1.1, eff.VolumeMomentumRet1MinPct, 1e-9)
	assert.InDelta(t, 0.25*1.1, eff.VolatilityTrendRet4MinPct, 1e-9)
	assert.InDelta(t, 1.10*1.1, eff.RangeBreakoutVolumeRatioMin, 1e-9)
}

func TestEffectiveTighteningIsCapped(t *testing.T) {
	base := DefaultThresholds()
	// overheat would be 2.0 * 0.25 = 0.5; cap holds it at 0.25
	eff := base.Effective(rowsWithExpansion(3.0, 3.0, 3.0))

	assert.InDelta(t, 1.20*1.25, eff.VolumeMomentumVolumeRatioMin, 1e-9)
}

func TestEffectiveEvenMedian(t *testing.T) {
	base := DefaultThresholds()
	// median of {1.0, 1.2} is 1.1 -> tighten 0.025
	eff := base.Effective(rowsWithExpansion(1.0, 1.2))

	assert.InDelta(t, 1.20*1.025, eff.VolumeMomentumVolumeRatioMin, 1e-9)
}

func TestEffectiveEmptySnapshot(t *testing.T) {
	base := DefaultThresholds()
	assert.Equal(t, base, base.Effective(nil))
}
