package marketdata

import (
	"sort"
	"time"
)

// ruleDuration maps a resample rule like "2h", "4h" or "1d" to a bucket
// width. Unknown rules return 0 and leave the series untouched.
func ruleDuration(rule string) time.Duration {
	switch rule {
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		if d, err := time.ParseDuration(rule); err == nil {
			return d
		}
		return 0
	}
}

// Resample aggregates bars onto bucket boundaries: open is the first value
// in the bucket, high the max, low the min, close the last, volume the sum.
func Resample(bars []Bar, rule string) []Bar {
	width := ruleDuration(rule)
	if width <= 0 || len(bars) == 0 {
		return bars
	}

	buckets := make(map[int64]*Bar)
	order := make([]int64, 0)

	for _, b := range bars {
		key := b.Timestamp.UTC().Truncate(width).Unix()
		agg, ok := buckets[key]
		if !ok {
			copied := b
			copied.Timestamp = time.Unix(key, 0).UTC()
			buckets[key] = &copied
			order = append(order, key)
			continue
		}
		if b.High > agg.High {
			agg.High = b.High
		}
		if b.Low < agg.Low {
			agg.Low = b.Low
		}
		agg.Close = b.Close
		agg.Volume += b.Volume
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]Bar, 0, len(order))
	for _, key := range order {
		out = append(out, *buckets[key])
	}
	return out
}
