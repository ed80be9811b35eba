package transform

import (
	"regexp"
	"strings"
)

// rebrands maps tickers that changed after a corporate rename or merger to
// their current symbol. Disclosures keep reporting the symbol that was
// current at filing time.
var rebrands = map[string]string{
	"FB":    "META",
	"TWTR":  "X",
	"ATVI":  "MSFT",
	"DISCA": "WBD",
	"VIAC":  "PARA",
	"ANTM":  "ELV",
}

// companyTickers maps well-known company names (lower-case substrings) to
// tickers for filings that spell out the company with no symbol. Ordered;
// first match wins.
var companyTickers = []struct {
	company string
	ticker  string
}{
	{"apple", "AAPL"},
	{"microsoft", "MSFT"},
	{"amazon", "AMZN"},
	{"alphabet", "GOOGL"},
	{"google", "GOOGL"},
	{"meta platforms", "META"},
	{"facebook", "META"},
	{"tesla", "TSLA"},
	{"nvidia", "NVDA"},
	{"netflix", "NFLX"},
	{"berkshire", "BRK.B"},
	{"jpmorgan", "JPM"},
	{"johnson & johnson", "JNJ"},
	{"exxon", "XOM"},
	{"visa", "V"},
	{"mastercard", "MA"},
	{"walmart", "WMT"},
	{"disney", "DIS"},
	{"intel", "INTC"},
	{"advanced micro", "AMD"},
	{"boeing", "BA"},
	{"pfizer", "PFE"},
	{"coca-cola", "KO"},
	{"salesforce", "CRM"},
	{"oracle", "ORCL"},
}

var parenTicker = regexp.MustCompile(`\(([A-Z]{1,5})\)`)

// ExtractTicker recovers a ticker from an asset name. Policy: a
// parenthesized uppercase symbol wins, then the curated company map, then
// nothing. The result is always rebrand-corrected.
func ExtractTicker(assetName string) string {
	if m := parenTicker.FindStringSubmatch(assetName); m != nil {
		return CorrectTicker(m[1])
	}

	lower := strings.ToLower(assetName)
	for _, entry := range companyTickers {
		if strings.Contains(lower, entry.company) {
			return CorrectTicker(entry.ticker)
		}
	}
	return ""
}

// CorrectTicker maps a stale post-rebrand symbol to its current one.
// Unknown symbols pass through unchanged.
func CorrectTicker(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if current, ok := rebrands[t]; ok {
		return current
	}
	return t
}
