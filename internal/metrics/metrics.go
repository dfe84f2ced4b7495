// Package metrics exposes prometheus instruments for cycle accounting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Entries counts filled entry decisions per process lifetime.
	Entries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cryptoswing",
		Subsystem: "portfolio",
		Name:      "entries_total",
		Help:      "Number of entry decisions that resulted in a new holding",
	})

	// NoEntries counts decisions recorded to the watchlist.
	NoEntries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cryptoswing",
		Subsystem: "portfolio",
		Name:      "no_entries_total",
		Help:      "Number of no-entry decisions recorded to the watchlist",
	})

	// Exits counts executed sells by exit category.
	Exits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cryptoswing",
		Subsystem: "portfolio",
		Name:      "exits_total",
		Help:      "Number of executed sells by exit category",
	}, []string{"category"})

	// Rotations counts slot rotations.
	Rotations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cryptoswing",
		Subsystem: "portfolio",
		Name:      "rotations_total",
		Help:      "Number of completed slot rotations",
	})

	// OpenHoldings tracks the holdings count at the end of each cycle.
	OpenHoldings = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cryptoswing",
		Subsystem: "portfolio",
		Name:      "open_holdings",
		Help:      "Open holdings at the end of the last cycle",
	})

	// OracleFallbacks counts LLM failures that fell back to the heuristic.
	OracleFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cryptoswing",
		Subsystem: "oracle",
		Name:      "fallbacks_total",
		Help:      "Number of oracle calls served by the heuristic fallback",
	})

	// BarFetchFailures counts symbols dropped after an exhausted fetch plan.
	BarFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cryptoswing",
		Subsystem: "marketdata",
		Name:      "bar_fetch_failures_total",
		Help:      "Number of symbols dropped after all bar fetch steps failed",
	})
)
