// Package snapshot turns raw candles into the per-symbol feature rows the
// trigger bank screens each cycle.
package snapshot

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/trend"

	"github.com/prism-insight/cryptoswing/internal/marketdata"
)

// MinBars is the minimum history required to compute a feature row.
const MinBars = 60

const (
	atrPeriod       = 14
	rollingWindow   = 20
	breakoutWindow  = 20
	invalidBreakout = -999.0
)

// Row holds the per-symbol features screened by the trigger bank.
// atr_pct is a fraction of price; the *_pct returns and gaps are percents.
type Row struct {
	Symbol        string  `json:"symbol"`
	Close         float64 `json:"close"`
	Volume        float64 `json:"volume"`
	Amount        float64 `json:"amount"`
	Ret1Pct       float64 `json:"ret_1_pct"`
	Ret4Pct       float64 `json:"ret_4_pct"`
	VolumeRatio20 float64 `json:"volume_ratio_20"`
	ATRPct        float64 `json:"atr_pct"`
	ATRExpansion  float64 `json:"atr_expansion"`
	TrendGapPct   float64 `json:"trend_gap_pct"`
	BreakoutPct   float64 `json:"breakout_pct"`
	EMA20GtEMA50  bool    `json:"ema20_gt_ema50"`
	Theme         string  `json:"theme"`
}

// ComputeRow derives the feature row for one symbol from its candles.
// Returns an error when the history is too short to be meaningful.
func ComputeRow(symbol string, bars []marketdata.Bar) (Row, error) {
	if len(bars) < MinBars {
		return Row{}, fmt.Errorf("insufficient history for %s: %d bars", symbol, len(bars))
	}

	n := len(bars)
	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	last := bars[n-1]
	if last.Close <= 0 {
		return Row{}, fmt.Errorf("non-positive close for %s", symbol)
	}

	ema20 := lastEMA(closes, 20)
	ema50 := lastEMA(closes, 50)

	atrPct := atrPctSeries(bars)
	lastATR := atrPct[len(atrPct)-1]

	row := Row{
		Symbol:       symbol,
		Close:        last.Close,
		Volume:       last.Volume,
		Amount:       last.Close * last.Volume,
		ATRPct:       lastATR,
		EMA20GtEMA50: ema20 > ema50,
	}

	if prev := bars[n-2].Close; prev > 0 {
		row.Ret1Pct = (last.Close/prev - 1) * 100
	}
	if n >= 6 {
		if ref := bars[n-6].Close; ref > 0 {
			row.Ret4Pct = (last.Close/ref - 1) * 100
		}
	}

	if mv := meanVolume(bars[n-rollingWindow:]); mv > 0 {
		row.VolumeRatio20 = last.Volume / mv
	}

	if ma := mean(atrPct[len(atrPct)-rollingWindow:]); ma > 0 {
		row.ATRExpansion = lastATR / ma
	}

	if ema50 > 0 {
		row.TrendGapPct = (ema20/ema50 - 1) * 100
	}

	row.BreakoutPct = breakoutPct(bars)

	return row, nil
}

// lastEMA returns the final EMA value for the given span.
func lastEMA(values []float64, period int) float64 {
	in := make(chan float64, len(values))
	for _, v := range values {
		in <- v
	}
	close(in)

	ema := trend.NewEmaWithPeriod[float64](period)
	var last float64
	for v := range ema.Compute(in) {
		last = v
	}
	return last
}

// atrPctSeries computes the 14-period simple-mean true range divided by
// close, one value per bar from index atrPeriod onward.
func atrPctSeries(bars []marketdata.Bar) []float64 {
	n := len(bars)
	tr := make([]float64, n)
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < n; i++ {
		prevClose := bars[i-1].Close
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - prevClose)
		lc := math.Abs(bars[i].Low - prevClose)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	out := make([]float64, 0, n-atrPeriod+1)
	for i := atrPeriod - 1; i < n; i++ {
		atr := mean(tr[i-atrPeriod+1 : i+1])
		if bars[i].Close > 0 {
			out = append(out, atr/bars[i].Close)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// breakoutPct measures last close against the 20-bar high ending one bar
// before the current one.
func breakoutPct(bars []marketdata.Bar) float64 {
	n := len(bars)
	if n < breakoutWindow+2 {
		return invalidBreakout
	}
	ref := 0.0
	for _, b := range bars[n-breakoutWindow-1 : n-1] {
		if b.High > ref {
			ref = b.High
		}
	}
	if ref <= 0 {
		return invalidBreakout
	}
	return (bars[n-1].Close/ref - 1) * 100
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func meanVolume(bars []marketdata.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range bars {
		sum += b.Volume
	}
	return sum / float64(len(bars))
}
