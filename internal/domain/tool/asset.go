package tool

import (
	"regexp"
	"strings"
	"unicode"
)

// AssetType classifies a looked-up asset.
type AssetType string

const (
	AssetStock  AssetType = "Stock"
	AssetCrypto AssetType = "Crypto"
	AssetETF    AssetType = "ETF"
)

// Asset is the public profile returned by LookupAsset.
type Asset struct {
	Name     string    `json:"name"`
	Symbol   string    `json:"symbol"`
	Type     AssetType `json:"type"`
	Currency string    `json:"currency"`
}

type assetRecord struct {
	Asset
	isin    string
	aliases []string
}

var mockAssets = []assetRecord{
	{Asset{"Nestlé SA", "NESN", AssetStock, "CHF"}, "CH0038863350", []string{"nestle", "nestlé"}},
	{Asset{"Roche Holding AG", "ROG", AssetStock, "CHF"}, "CH0012032048", []string{"roche"}},
	{Asset{"Apple Inc.", "AAPL", AssetStock, "USD"}, "US0378331005", []string{"apple"}},
	{Asset{"Bitcoin", "BTC", AssetCrypto, "USD"}, "", []string{"bitcoin"}},
	{Asset{"S&P 500 ETF", "SPY", AssetETF, "USD"}, "US78462F1030", []string{"s&p 500", "sp500", "s&p500"}},
}

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// IsLikelyISIN reports whether s has the shape of an ISIN.
func IsLikelyISIN(s string) bool {
	return isinPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// LookupAsset resolves an ISIN, ticker symbol, name or alias against the
// built-in asset list. Matching tries ISIN first, then symbol, then the
// whitespace-insensitive name and aliases.
func LookupAsset(query string) (Asset, bool) {
	normalized := normalizeQuery(query)
	if normalized == "" {
		return Asset{}, false
	}
	upper := strings.ToUpper(strings.TrimSpace(query))

	for _, a := range mockAssets {
		if a.isin != "" && a.isin == upper {
			return a.Asset, true
		}
	}
	for _, a := range mockAssets {
		if a.Symbol == upper {
			return a.Asset, true
		}
	}
	for _, a := range mockAssets {
		if normalizeQuery(a.Name) == normalized {
			return a.Asset, true
		}
		for _, alias := range a.aliases {
			if normalizeQuery(alias) == normalized {
				return a.Asset, true
			}
		}
	}
	return Asset{}, false
}

func normalizeQuery(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
