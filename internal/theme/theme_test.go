package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBase(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"BTC-USD", "BTC"},
		{"eth-usd", "ETH"},
		{"SOL/USDT", "SOL"},
		{"DOGEUSDT", "DOGE"},
		{"ATOMUSD", "ATOM"},
		{"NEAR", "NEAR"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Base(tt.symbol), "symbol %q", tt.symbol)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"BTC-USD", "Major"},
		{"XRP-USD", "Major"},
		{"SOL-USD", "L1"},
		{"NEAR-USD", "L1"},
		{"MATIC-USD", "L2"},
		{"UNI-USD", "DeFi"},
		{"LINK-USD", "Infra"},
		{"DOGE-USD", "Meme"},
		{"TRX-USD", "Other"},
		{"UNKNOWN-USD", "Other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.symbol), "symbol %q", tt.symbol)
	}
}
