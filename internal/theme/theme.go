// Package theme classifies crypto symbols into narrative sectors.
package theme

import "strings"

var themeByBase = map[string]string{
	"BTC": "Major",
	"ETH": "Major",
	"BNB": "Major",
	"XRP": "Major",

	"SOL":  "L1",
	"ADA":  "L1",
	"AVAX": "L1",
	"DOT":  "L1",
	"ATOM": "L1",
	"NEAR": "L1",

	"MATIC": "L2",

	"UNI":  "DeFi",
	"AAVE": "DeFi",
	"MKR":  "DeFi",
	"SNX":  "DeFi",
	"CRV":  "DeFi",

	"LINK": "Infra",

	"DOGE": "Meme",
	"SHIB": "Meme",
	"PEPE": "Meme",
}

var quoteSuffixes = []string{"USDT", "USDC", "USD", "KRW", "BTC", "ETH"}

// Base extracts the base asset from symbols like BTC-USD, BTCUSDT,
// BTC/KRW or a bare BTC.
func Base(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return ""
	}
	for _, sep := range []string{"-", "/"} {
		if idx := strings.Index(s, sep); idx > 0 {
			return s[:idx]
		}
	}
	for _, q := range quoteSuffixes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q)
		}
	}
	return s
}

// Classify returns the theme for a symbol, "Other" when unknown.
func Classify(symbol string) string {
	if t, ok := themeByBase[Base(symbol)]; ok {
		return t
	}
	return "Other"
}
