package transform

import (
	"regexp"
	"strconv"
	"strings"
)

// stockActRanges are the ten canonical disclosure buckets, keyed by their
// normalized text.
var stockActRanges = map[string][2]float64{
	"$1 - $1,000":                 {1, 1_000},
	"$1,001 - $15,000":            {1_001, 15_000},
	"$15,001 - $50,000":           {15_001, 50_000},
	"$50,001 - $100,000":          {50_001, 100_000},
	"$100,001 - $250,000":         {100_001, 250_000},
	"$250,001 - $500,000":         {250_001, 500_000},
	"$500,001 - $1,000,000":       {500_001, 1_000_000},
	"$1,000,001 - $5,000,000":     {1_000_001, 5_000_000},
	"$5,000,001 - $25,000,000":    {5_000_001, 25_000_000},
	"$25,000,001 - $50,000,000":   {25_000_001, 50_000_000},
}

var (
	rangeRe  = regexp.MustCompile(`\$\s*([\d,]+(?:\.\d+)?)\s*-\s*\$\s*([\d,]+(?:\.\d+)?)`)
	overRe   = regexp.MustCompile(`(?i)(?:over|above|>)\s*\$\s*([\d,]+(?:\.\d+)?)`)
	underRe  = regexp.MustCompile(`(?i)(?:under|below|<)\s*\$\s*([\d,]+(?:\.\d+)?)`)
	singleRe = regexp.MustCompile(`\$\s*([\d,]+(?:\.\d+)?)`)
	spacesRe = regexp.MustCompile(`\s+`)
)

// ParseAmount maps disclosure amount text onto (min, max, exact). At most one
// of max and exact is populated. Unparseable text yields three nils.
//
// Order: verbatim bucket match, then "$X - $Y", then over/under bounds,
// then a bare "$X" treated as exact.
func ParseAmount(text string) (min, max, exact *float64) {
	normalized := spacesRe.ReplaceAllString(strings.TrimSpace(text), " ")
	if normalized == "" {
		return nil, nil, nil
	}

	if bounds, ok := stockActRanges[normalized]; ok {
		return ptrOf(bounds[0]), ptrOf(bounds[1]), nil
	}

	if m := rangeRe.FindStringSubmatch(normalized); m != nil {
		lo, okLo := parseDollars(m[1])
		hi, okHi := parseDollars(m[2])
		if okLo && okHi {
			return ptrOf(lo), ptrOf(hi), nil
		}
	}

	if m := overRe.FindStringSubmatch(normalized); m != nil {
		if v, ok := parseDollars(m[1]); ok {
			return ptrOf(v + 1), nil, nil
		}
	}

	if m := underRe.FindStringSubmatch(normalized); m != nil {
		if v, ok := parseDollars(m[1]); ok {
			return nil, ptrOf(v), nil
		}
	}

	if m := singleRe.FindStringSubmatch(normalized); m != nil {
		if v, ok := parseDollars(m[1]); ok {
			return nil, nil, ptrOf(v)
		}
	}

	return nil, nil, nil
}

func parseDollars(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func ptrOf(v float64) *float64 {
	return &v
}
