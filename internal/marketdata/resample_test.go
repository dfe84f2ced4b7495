package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourlyBar(t time.Time, o, h, l, c, v float64) Bar {
	return Bar{Timestamp: t, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestResampleTwoHour(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		hourlyBar(base, 100, 105, 99, 101, 10),
		hourlyBar(base.Add(1*time.Hour), 101, 110, 100, 108, 20),
		hourlyBar(base.Add(2*time.Hour), 108, 112, 107, 111, 5),
		hourlyBar(base.Add(3*time.Hour), 111, 113, 109, 110, 7),
	}

	out := Resample(bars, "2h")
	require.Len(t, out, 2)

	assert.Equal(t, base, out[0].Timestamp)
	assert.Equal(t, 100.0, out[0].Open)
	assert.Equal(t, 110.0, out[0].High)
	assert.Equal(t, 99.0, out[0].Low)
	assert.Equal(t, 108.0, out[0].Close)
	assert.Equal(t, 30.0, out[0].Volume)

	assert.Equal(t, base.Add(2*time.Hour), out[1].Timestamp)
	assert.Equal(t, 110.0, out[1].Close)
	assert.Equal(t, 12.0, out[1].Volume)
}

func TestResampleUnknownRuleKeepsSeries(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	bars := []Bar{hourlyBar(base, 1, 2, 0.5, 1.5, 3)}

	out := Resample(bars, "weekly")
	assert.Equal(t, bars, out)
}

func TestResampleDaily(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]Bar, 0, 30)
	for i := 0; i < 30; i++ {
		bars = append(bars, hourlyBar(base.Add(time.Duration(i)*time.Hour), 100, 101, 99, 100, 1))
	}

	out := Resample(bars, "1d")
	require.Len(t, out, 2)
	assert.Equal(t, 24.0, out[0].Volume)
	assert.Equal(t, 6.0, out[1].Volume)
}
