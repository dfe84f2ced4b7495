package trigger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-insight/cryptoswing/internal/snapshot"
)

func TestBuildDocumentWirePercentages(t *testing.T) {
	c := scored("BTC-USD", 0.5, func(r *snapshot.Row) { r.ATRPct = 0.03 })
	applyAgentFit(&c)

	doc := BuildDocument(Selection{VolumeMomentum: {c}}, NewMetadata("1h", "14d", 16, 3, 1))
	require.Len(t, doc.Groups[VolumeMomentum], 1)

	wire := doc.Groups[VolumeMomentum][0]
	assert.InDelta(t, 3.6, wire.StopLossPct, 1e-9)
	assert.InDelta(t, 7.2, wire.TargetPct, 1e-9)
	assert.InDelta(t, 96.4, wire.StopLossPrice, 1e-9)
	assert.InDelta(t, 107.2, wire.TargetPrice, 1e-9)
	assert.Equal(t, 100.0, wire.CurrentPrice)
	assert.Equal(t, "Major", wire.Theme)
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	c := scored("ETH-USD", 0.4, nil)
	applyAgentFit(&c)

	doc := BuildDocument(Selection{RangeBreakout: {c}}, NewMetadata("2h", "30d", 12, 3, 1))
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded Document
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, doc.Metadata, decoded.Metadata)
	require.Len(t, decoded.Groups[RangeBreakout], 1)
	assert.Equal(t, "ETH-USD", decoded.Groups[RangeBreakout][0].Symbol)
	assert.InDelta(t, doc.Groups[RangeBreakout][0].FinalScore,
		decoded.Groups[RangeBreakout][0].FinalScore, 1e-9)
}

func TestMetadataIsStringValued(t *testing.T) {
	meta := NewMetadata("1h", "14d", 16, 3, 1)
	assert.Equal(t, "CRYPTO", meta.Market)
	assert.Equal(t, "16", meta.UniverseSize)
	assert.Equal(t, "3", meta.MaxPositions)
	assert.Equal(t, "1", meta.FallbackMaxEntries)
	assert.Equal(t, "hybrid", meta.SelectionMode)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`, meta.RunTime)
}

func TestEmptyDocument(t *testing.T) {
	doc := EmptyDocument()
	assert.Equal(t, "empty", doc.Metadata.Status)
	assert.Empty(t, doc.Groups)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"metadata":{"status":"empty"}}`, string(data))
}

func TestOrderedTriggers(t *testing.T) {
	doc := Document{Groups: map[string][]Candidate{
		"Zeta Custom":     {},
		RangeBreakout:     {},
		VolumeMomentum:    {},
		"Alpha Custom":    {},
		FallbackMomentum:  {},
	}}

	assert.Equal(t, []string{
		VolumeMomentum, RangeBreakout, FallbackMomentum,
		"Alpha Custom", "Zeta Custom",
	}, doc.OrderedTriggers())
}
