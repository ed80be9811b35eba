package transform

import (
	"regexp"
	"strings"
)

var titleRe = regexp.MustCompile(`(?i)^(?:the right honourable|senator|sen\.?|representative|rep\.?|honorable|hon\.?|mr\.?|mrs\.?|ms\.?|dr\.?)\s+`)

// StripTitles removes leading honorifics from a politician name, repeatedly,
// so "Hon. Rep. Nancy Pelosi" reduces to "Nancy Pelosi".
func StripTitles(name string) string {
	out := strings.TrimSpace(name)
	for {
		stripped := titleRe.ReplaceAllString(out, "")
		if stripped == out {
			return out
		}
		out = stripped
	}
}

// SplitName splits a stripped name into (first, last). Middle tokens are
// dropped; a single token is treated as a first name only.
func SplitName(name string) (first, last string) {
	tokens := strings.Fields(StripTitles(name))
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	case 2:
		return tokens[0], tokens[1]
	default:
		return tokens[0], tokens[len(tokens)-1]
	}
}
