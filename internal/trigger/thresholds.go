// Package trigger screens snapshot rows through three momentum/volatility/
// breakout triggers and selects the final candidate set for the cycle.
package trigger

import (
	"math"
	"sort"

	"github.com/prism-insight/cryptoswing/internal/snapshot"
)

// Thresholds holds the minimum gates applied by the trigger bank.
type Thresholds struct {
	VolumeMomentumVolumeRatioMin float64
	VolumeMomentumRet1MinPct     float64
	VolatilityTrendRet4MinPct    float64
	RangeBreakoutVolumeRatioMin  float64
	TighteningFactor             float64
}

// DefaultThresholds returns the base gates before adaptive tightening.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VolumeMomentumVolumeRatioMin: 1.20,
		VolumeMomentumRet1MinPct:     0.15,
		VolatilityTrendRet4MinPct:    0.25,
		RangeBreakoutVolumeRatioMin:  1.10,
		TighteningFactor:             0.25,
	}
}

// Effective scales the base thresholds by the volatility overheat of the
// current snapshot: tighten = min(max(median(atr_expansion)-1, 0)*factor, 0.25).
func (t Thresholds) Effective(rows []snapshot.Row) Thresholds {
	if len(rows) == 0 {
		return t
	}

	med := medianATRExpansion(rows)
	overheat := math.Max(0, med-1.0)
	tighten := math.Min(overheat*math.Max(t.TighteningFactor, 0), 0.25)

	return Thresholds{
		VolumeMomentumVolumeRatioMin: t.VolumeMomentumVolumeRatioMin * (1 + tighten),
		VolumeMomentumRet1MinPct:     t.VolumeMomentumRet1MinPct * (1 + tighten),
		VolatilityTrendRet4MinPct:    t.VolatilityTrendRet4MinPct * (1 + tighten),
		RangeBreakoutVolumeRatioMin:  t.RangeBreakoutVolumeRatioMin * (1 + tighten),
		TighteningFactor:             t.TighteningFactor,
	}
}

func medianATRExpansion(rows []snapshot.Row) float64 {
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.ATRExpansion
	}
	sort.Float64s(values)

	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
