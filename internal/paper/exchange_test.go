package paper

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-insight/cryptoswing/internal/store"
)

type stubPricer map[string]float64

func (p stubPricer) SpotPrice(_ context.Context, symbol string) float64 {
	return p[symbol]
}

func testExchange(t *testing.T, prices stubPricer) (*Exchange, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(prices, st, 0.001, 0.0005), st
}

func ledger(t *testing.T, st *store.Store) []store.OrderExecution {
	t.Helper()
	rows, err := st.ListExecutions(0)
	require.NoError(t, err)
	return rows
}

func TestBuyMarketFill(t *testing.T) {
	ex, st := testExchange(t, stubPricer{"BTC-USD": 100})

	r, err := ex.Buy(context.Background(), "BTC-USD", 100, 0, map[string]interface{}{"trigger_type": "Volume Momentum"})
	require.NoError(t, err)

	assert.True(t, r.Success)
	assert.InDelta(t, 100.05, r.ExecutedPrice, 1e-9)
	assert.InDelta(t, 100.0/100.05, r.Quantity, 1e-12)
	assert.InDelta(t, 0.1, r.Fee, 1e-9)
	assert.Equal(t, "Filled", r.Message)
	assert.Positive(t, r.OrderID)

	rows := ledger(t, st)
	require.Len(t, rows, 1)
	assert.Equal(t, "buy", rows[0].Side)
	assert.Equal(t, "market", rows[0].OrderType)
	assert.Equal(t, "filled", rows[0].Status)
	assert.Equal(t, "paper", rows[0].Mode)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rows[0].Metadata), &meta))
	assert.Equal(t, "Volume Momentum", meta["trigger_type"])
}

func TestBuyRejectedWhenPriceUnavailable(t *testing.T) {
	ex, st := testExchange(t, stubPricer{})

	r, err := ex.Buy(context.Background(), "BTC-USD", 100, 0, nil)
	require.NoError(t, err)

	assert.False(t, r.Success)
	assert.Equal(t, "Price unavailable", r.Message)
	assert.Zero(t, r.ExecutedPrice)

	rows := ledger(t, st)
	require.Len(t, rows, 1)
	assert.Equal(t, "rejected", rows[0].Status)
	assert.Empty(t, rows[0].Metadata)
}

func TestBuyLimitUnfilled(t *testing.T) {
	ex, st := testExchange(t, stubPricer{"BTC-USD": 100})

	// slipped price 100.05 exceeds the 100.00 limit
	r, err := ex.Buy(context.Background(), "BTC-USD", 100, 100.0, nil)
	require.NoError(t, err)

	assert.False(t, r.Success)
	assert.Equal(t, "Limit not reached", r.Message)

	rows := ledger(t, st)
	require.Len(t, rows, 1)
	assert.Equal(t, "unfilled", rows[0].Status)
	assert.Equal(t, "limit", rows[0].OrderType)
	assert.Equal(t, 100.0, rows[0].RequestedPrice)
}

func TestBuyLimitFilled(t *testing.T) {
	ex, _ := testExchange(t, stubPricer{"BTC-USD": 100})

	r, err := ex.Buy(context.Background(), "BTC-USD", 100, 101.0, nil)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.InDelta(t, 100.05, r.ExecutedPrice, 1e-9)
}

func TestSellAllMarketFill(t *testing.T) {
	ex, st := testExchange(t, stubPricer{"BTC-USD": 110})

	r, err := ex.SellAll(context.Background(), "BTC-USD", 2, 0, map[string]interface{}{
		"reason":        "target reached",
		"exit_category": "normal",
	})
	require.NoError(t, err)

	assert.True(t, r.Success)
	assert.InDelta(t, 109.945, r.ExecutedPrice, 1e-9)
	gross := 2 * 109.945
	assert.InDelta(t, gross, r.QuoteAmount, 1e-9)
	assert.InDelta(t, gross*0.001, r.Fee, 1e-9)
	assert.InDelta(t, gross-gross*0.001, r.NetAmount, 1e-9)

	rows := ledger(t, st)
	require.Len(t, rows, 1)
	assert.Equal(t, "sell", rows[0].Side)
	assert.Equal(t, "filled", rows[0].Status)
}

func TestSellAllRejectsBadInput(t *testing.T) {
	ex, st := testExchange(t, stubPricer{"BTC-USD": 100})

	r, err := ex.SellAll(context.Background(), "BTC-USD", 0, 0, nil)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "Invalid price or quantity", r.Message)

	r, err = ex.SellAll(context.Background(), "NOPE-USD", 1, 0, nil)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "Invalid price or quantity", r.Message)

	assert.Len(t, ledger(t, st), 2)
}

func TestSellAllLimitUnfilled(t *testing.T) {
	ex, _ := testExchange(t, stubPricer{"BTC-USD": 100})

	// slipped price 99.95 is below the 100.00 limit
	r, err := ex.SellAll(context.Background(), "BTC-USD", 1, 100.0, nil)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "Limit not reached", r.Message)
}

func TestDefaultRates(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	ex := New(stubPricer{"BTC-USD": 100}, st, 0, -1)
	assert.Equal(t, DefaultFeeRate, ex.feeRate)
	assert.Equal(t, DefaultSlippageRate, ex.slippageRate)
}

func TestCurrentPrice(t *testing.T) {
	ex, _ := testExchange(t, stubPricer{"ETH-USD": 42.5})
	assert.Equal(t, 42.5, ex.CurrentPrice(context.Background(), "ETH-USD"))
	assert.Zero(t, ex.CurrentPrice(context.Background(), "BTC-USD"))
}
