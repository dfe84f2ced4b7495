package trigger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Candidate is the wire form of one selected symbol in the Phase-1 output
// document. stop_loss_pct and target_pct are expressed in percent here,
// unlike the fractional internal metrics.
type Candidate struct {
	Symbol          string  `json:"symbol"`
	CurrentPrice    float64 `json:"current_price"`
	Volume          float64 `json:"volume"`
	TradeValue      float64 `json:"trade_value"`
	Ret1Pct         float64 `json:"ret_1_pct"`
	Ret4Pct         float64 `json:"ret_4_pct"`
	VolumeRatio20   float64 `json:"volume_ratio_20"`
	ATRPct          float64 `json:"atr_pct"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
	Theme           string  `json:"theme"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	StopLossPrice   float64 `json:"stop_loss_price"`
	TargetPct       float64 `json:"target_pct"`
	TargetPrice     float64 `json:"target_price"`
	AgentFitScore   float64 `json:"agent_fit_score"`
	CompositeScore  float64 `json:"composite_score"`
	FinalScore      float64 `json:"final_score"`
}

// Metadata describes the run that produced a document. Values are strings
// on the wire.
type Metadata struct {
	RunTime            string `json:"run_time,omitempty"`
	Market             string `json:"market,omitempty"`
	Interval           string `json:"interval,omitempty"`
	Period             string `json:"period,omitempty"`
	UniverseSize       string `json:"universe_size,omitempty"`
	SelectionMode      string `json:"selection_mode,omitempty"`
	MaxPositions       string `json:"max_positions,omitempty"`
	FallbackMaxEntries string `json:"fallback_max_entries,omitempty"`
	Status             string `json:"status,omitempty"`
}

// Document is the Phase-1 output consumed by the portfolio controller:
// trigger name -> candidates, plus a metadata block.
type Document struct {
	Groups   map[string][]Candidate
	Metadata Metadata
}

// NewMetadata builds run metadata for a selection.
func NewMetadata(interval, period string, universeSize, maxPositions, fallbackMaxEntries int) Metadata {
	return Metadata{
		RunTime:            time.Now().UTC().Format("2006-01-02T15:04:05") + "Z",
		Market:             "CRYPTO",
		Interval:           interval,
		Period:             period,
		UniverseSize:       strconv.Itoa(universeSize),
		SelectionMode:      "hybrid",
		MaxPositions:       strconv.Itoa(maxPositions),
		FallbackMaxEntries: strconv.Itoa(fallbackMaxEntries),
	}
}

// EmptyDocument marks a cycle where no snapshot data was available.
func EmptyDocument() Document {
	return Document{Metadata: Metadata{Status: "empty"}}
}

// BuildDocument converts a selection into its wire form.
func BuildDocument(sel Selection, meta Metadata) Document {
	groups := make(map[string][]Candidate, len(sel))
	for name, candidates := range sel {
		items := make([]Candidate, 0, len(candidates))
		for _, c := range candidates {
			items = append(items, Candidate{
				Symbol:          c.Symbol,
				CurrentPrice:    c.Close,
				Volume:          c.Volume,
				TradeValue:      c.Amount,
				Ret1Pct:         c.Ret1Pct,
				Ret4Pct:         c.Ret4Pct,
				VolumeRatio20:   c.VolumeRatio20,
				ATRPct:          c.ATRPct,
				RiskRewardRatio: c.RiskRewardRatio,
				Theme:           c.Theme,
				StopLossPct:     c.StopLossPct * 100,
				StopLossPrice:   c.StopLossPrice,
				TargetPct:       c.TargetPct * 100,
				TargetPrice:     c.TargetPrice,
				AgentFitScore:   c.AgentFitScore,
				CompositeScore:  c.CompositeScore,
				FinalScore:      c.FinalScore,
			})
		}
		groups[name] = items
	}
	return Document{Groups: groups, Metadata: meta}
}

// OrderedTriggers returns the document's trigger names in canonical
// processing order, unknown names last in lexical order.
func (d Document) OrderedTriggers() []string {
	present := make(map[string]bool, len(d.Groups))
	for name := range d.Groups {
		present[name] = true
	}

	out := make([]string, 0, len(d.Groups))
	for _, name := range Order {
		if present[name] {
			out = append(out, name)
			delete(present, name)
		}
	}

	rest := make([]string, 0, len(present))
	for name := range present {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// MarshalJSON flattens groups and metadata into a single object.
func (d Document) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(d.Groups)+1)
	for name, items := range d.Groups {
		flat[name] = items
	}
	flat["metadata"] = d.Metadata
	return json.Marshal(flat)
}

// UnmarshalJSON splits the flat object back into groups and metadata.
func (d *Document) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("failed to parse candidates document: %w", err)
	}

	d.Groups = make(map[string][]Candidate)
	for key, raw := range flat {
		if key == "metadata" {
			if err := json.Unmarshal(raw, &d.Metadata); err != nil {
				return fmt.Errorf("failed to parse metadata: %w", err)
			}
			continue
		}
		var items []Candidate
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("failed to parse trigger group %q: %w", key, err)
		}
		d.Groups[key] = items
	}
	return nil
}
