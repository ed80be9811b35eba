package pdftext

import (
	"regexp"
	"strings"
	"time"

	"disclosure-lab/internal/transform"
)

// Transaction is one trade recovered from extracted filing text.
type Transaction struct {
	Ticker          string
	AssetName       string
	TransactionType string
	TransactionDate time.Time
	AmountMin       *float64
	AmountMax       *float64
	AmountExact     *float64
}

var (
	dateTokenRe = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2})\b`)
	amountTrim  = regexp.MustCompile(`\$[\d,. ]*(?:-\s*\$[\d,. ]*)?`)
)

var dateLayouts = []string{"01/02/2006", "1/2/2006", "2006-01-02"}

// typeWords maps spelled-out transaction verbs to the canonical type.
// Single-letter filing codes (P, S, E) are handled separately since they
// only count when they sit next to a date.
var typeWords = []struct {
	word string
	typ  string
}{
	{"option purchase", "option_purchase"},
	{"option sale", "option_sale"},
	{"purchase", "purchase"},
	{"bought", "purchase"},
	{"buy", "purchase"},
	{"sale", "sale"},
	{"sold", "sale"},
	{"sell", "sale"},
	{"exchange", "exchange"},
}

var codeTypes = map[string]string{
	"P": "purchase",
	"S": "sale",
	"E": "exchange",
}

// ParseTransactions scans extracted filing text line by line. A line counts
// as a transaction when it carries a parseable date together with either a
// transaction verb or a standalone P/S/E code adjacent to the date. Lines
// that carry a date but no recognizable type are dropped rather than
// guessed at.
func ParseTransactions(text string) []Transaction {
	var out []Transaction
	for _, line := range strings.Split(text, "\n") {
		if tx, ok := parseLine(line); ok {
			out = append(out, tx)
		}
	}
	return out
}

func parseLine(line string) (Transaction, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Transaction{}, false
	}

	dateLoc := dateTokenRe.FindStringIndex(line)
	if dateLoc == nil {
		return Transaction{}, false
	}
	date, ok := parseDate(line[dateLoc[0]:dateLoc[1]])
	if !ok {
		return Transaction{}, false
	}

	txType := transactionType(line, dateLoc)
	if txType == "" {
		return Transaction{}, false
	}

	assetName := assetNameOf(line, dateLoc[0])
	min, max, exact := transform.ParseAmount(line)

	return Transaction{
		Ticker:          transform.ExtractTicker(assetName),
		AssetName:       assetName,
		TransactionType: txType,
		TransactionDate: date,
		AmountMin:       min,
		AmountMax:       max,
		AmountExact:     exact,
	}, true
}

func parseDate(token string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// transactionType resolves the trade type for a line. Spelled-out verbs win;
// otherwise the tokens immediately before and after the date are checked for
// a standalone filing code.
func transactionType(line string, dateLoc []int) string {
	lower := strings.ToLower(line)
	for _, tw := range typeWords {
		if strings.Contains(lower, tw.word) {
			return tw.typ
		}
	}

	before := strings.Fields(line[:dateLoc[0]])
	if len(before) > 0 {
		if typ, ok := codeTypes[before[len(before)-1]]; ok {
			return typ
		}
	}
	after := strings.Fields(line[dateLoc[1]:])
	if len(after) > 0 {
		if typ, ok := codeTypes[after[0]]; ok {
			return typ
		}
	}
	return ""
}

// assetNameOf takes the text left of the date, minus any trailing filing
// code and dollar amounts.
func assetNameOf(line string, dateStart int) string {
	name := amountTrim.ReplaceAllString(line[:dateStart], "")
	fields := strings.Fields(name)
	if n := len(fields); n > 0 {
		if _, ok := codeTypes[fields[n-1]]; ok {
			fields = fields[:n-1]
		}
	}
	return strings.Trim(strings.Join(fields, " "), " -\t")
}
