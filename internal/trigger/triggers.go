package trigger

import (
	"sort"

	"github.com/prism-insight/cryptoswing/internal/snapshot"
)

// Canonical trigger names, in evaluation order.
const (
	VolumeMomentum    = "Volume Momentum"
	VolatilityTrend   = "Volatility Trend Expansion"
	RangeBreakout     = "Range Breakout"
	FallbackMomentum  = "Fallback Momentum"
	DefaultTopN       = 10
)

// Order is the fixed trigger order used by selection and by downstream
// candidate processing.
var Order = []string{VolumeMomentum, VolatilityTrend, RangeBreakout, FallbackMomentum}

// Scored is a snapshot row with its trigger-local composite score and the
// derived risk metrics attached by the selector.
type Scored struct {
	snapshot.Row

	CompositeScore  float64
	CompositeNorm   float64
	StopLossPct     float64 // fraction of price
	TargetPct       float64 // fraction of price
	StopLossPrice   float64
	TargetPrice     float64
	RiskRewardRatio float64
	AgentFitScore   float64
	FinalScore      float64
}

type weightedColumn struct {
	get    func(snapshot.Row) float64
	weight float64
}

// normalizeScore min-max normalizes each column to [0,1] across the
// candidate set, then returns the weighted sum divided by the total weight.
// A constant column normalizes to 0 for every row.
func normalizeScore(rows []snapshot.Row, cols []weightedColumn) []float64 {
	scores := make([]float64, len(rows))
	if len(rows) == 0 {
		return scores
	}

	weightSum := 0.0
	for _, c := range cols {
		weightSum += c.weight
	}
	if weightSum == 0 {
		weightSum = 1.0
	}

	for _, c := range cols {
		lo, hi := c.get(rows[0]), c.get(rows[0])
		for _, r := range rows[1:] {
			v := c.get(r)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		span := hi - lo
		if span <= 0 {
			span = 1.0
		}
		for i, r := range rows {
			scores[i] += (c.get(r) - lo) / span * c.weight
		}
	}

	for i := range scores {
		scores[i] /= weightSum
	}
	return scores
}

// scoreAndRank attaches composite scores, sorts descending and truncates
// to topN.
func scoreAndRank(rows []snapshot.Row, cols []weightedColumn, topN int) []Scored {
	scores := normalizeScore(rows, cols)
	out := make([]Scored, len(rows))
	for i, r := range rows {
		out[i] = Scored{Row: r, CompositeScore: scores[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompositeScore > out[j].CompositeScore })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

func filterRows(rows []snapshot.Row, keep func(snapshot.Row) bool) []snapshot.Row {
	out := make([]snapshot.Row, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// EvaluateVolumeMomentum screens for a volume surge with short-term
// momentum in an aligned trend.
func EvaluateVolumeMomentum(rows []snapshot.Row, t Thresholds, topN int) []Scored {
	matched := filterRows(rows, func(r snapshot.Row) bool {
		return r.VolumeRatio20 >= t.VolumeMomentumVolumeRatioMin &&
			r.Ret1Pct >= t.VolumeMomentumRet1MinPct &&
			r.EMA20GtEMA50
	})
	if len(matched) == 0 {
		return nil
	}
	return scoreAndRank(matched, []weightedColumn{
		{get: func(r snapshot.Row) float64 { return r.VolumeRatio20 }, weight: 0.45},
		{get: func(r snapshot.Row) float64 { return r.Ret1Pct }, weight: 0.35},
		{get: func(r snapshot.Row) float64 { return r.Amount }, weight: 0.20},
	}, topN)
}

// EvaluateVolatilityTrend screens for volatility expansion with trend
// alignment.
func EvaluateVolatilityTrend(rows []snapshot.Row, t Thresholds, topN int) []Scored {
	matched := filterRows(rows, func(r snapshot.Row) bool {
		return r.ATRExpansion >= 1.0 &&
			r.Ret4Pct >= t.VolatilityTrendRet4MinPct &&
			r.EMA20GtEMA50
	})
	if len(matched) == 0 {
		return nil
	}
	return scoreAndRank(matched, []weightedColumn{
		{get: func(r snapshot.Row) float64 { return r.ATRExpansion }, weight: 0.40},
		{get: func(r snapshot.Row) float64 { return r.TrendGapPct }, weight: 0.35},
		{get: func(r snapshot.Row) float64 { return r.Amount }, weight: 0.25},
	}, topN)
}

// EvaluateRangeBreakout screens for a range breakout with supporting
// volume.
func EvaluateRangeBreakout(rows []snapshot.Row, t Thresholds, topN int) []Scored {
	matched := filterRows(rows, func(r snapshot.Row) bool {
		return r.BreakoutPct >= -0.05 &&
			r.VolumeRatio20 >= t.RangeBreakoutVolumeRatioMin &&
			r.Ret1Pct >= 0
	})
	if len(matched) == 0 {
		return nil
	}
	return scoreAndRank(matched, []weightedColumn{
		{get: func(r snapshot.Row) float64 { return r.BreakoutPct }, weight: 0.45},
		{get: func(r snapshot.Row) float64 { return r.VolumeRatio20 }, weight: 0.35},
		{get: func(r snapshot.Row) float64 { return r.Amount }, weight: 0.20},
	}, topN)
}

// EvaluateFallback ranks the snapshot for the fallback selector used when
// every strict trigger comes up empty. Trend-aligned, sufficiently liquid
// symbols are preferred; an empty preference set falls back to the whole
// snapshot.
func EvaluateFallback(rows []snapshot.Row, topN int) []Scored {
	preferred := filterRows(rows, func(r snapshot.Row) bool {
		return r.EMA20GtEMA50 && r.VolumeRatio20 >= 0.9
	})
	if len(preferred) == 0 {
		preferred = rows
	}
	if len(preferred) == 0 {
		return nil
	}
	return scoreAndRank(preferred, []weightedColumn{
		{get: func(r snapshot.Row) float64 { return r.Amount }, weight: 0.45},
		{get: func(r snapshot.Row) float64 { return r.VolumeRatio20 }, weight: 0.25},
		{get: func(r snapshot.Row) float64 { return r.Ret4Pct }, weight: 0.20},
		{get: func(r snapshot.Row) float64 { return r.TrendGapPct }, weight: 0.10},
	}, topN)
}

// EvaluateAll runs the three strict triggers against the snapshot.
func EvaluateAll(rows []snapshot.Row, t Thresholds, topN int) map[string][]Scored {
	return map[string][]Scored{
		VolumeMomentum:  EvaluateVolumeMomentum(rows, t, topN),
		VolatilityTrend: EvaluateVolatilityTrend(rows, t, topN),
		RangeBreakout:   EvaluateRangeBreakout(rows, t, topN),
	}
}
