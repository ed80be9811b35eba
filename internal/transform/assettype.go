package transform

import (
	"strings"

	"disclosure-lab/internal/domain"
)

// InferAssetType classifies an asset from its name when the source did not
// supply a type. Keyword passes run most-specific first; anything left is
// assumed to be common stock.
func InferAssetType(assetName string) string {
	lower := strings.ToLower(assetName)

	switch {
	case containsAny(lower, "etf", "exchange traded"):
		return string(domain.AssetTypeETF)
	case containsAny(lower, "fund", "mutual", "index"):
		return string(domain.AssetTypeMutualFund)
	case containsAny(lower, "bond", "treasury", "note", "bill"):
		return string(domain.AssetTypeBond)
	case containsAny(lower, "option", "call", "put"):
		return string(domain.AssetTypeOption)
	case containsAny(lower, "crypto", "bitcoin", "ethereum"):
		return string(domain.AssetTypeCryptocurrency)
	}

	return string(domain.AssetTypeStock)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
