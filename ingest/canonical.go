package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/RajkumarR2006/gemarag/store"
)

type amountPattern struct {
	re         *regexp.Regexp
	multiplier float64
	currency   string
}

var amountPatterns = []amountPattern{
	{regexp.MustCompile(`(?i)₹\s*([\d,]+\.?\d*)\s*Cr(?:ore)?`), 1e7, "INR"},
	{regexp.MustCompile(`(?i)₹\s*([\d,]+\.?\d*)\s*Lakh`), 1e5, "INR"},
	{regexp.MustCompile(`(?i)Rs\.?\s*([\d,]+\.?\d*)\s*Cr(?:ore)?`), 1e7, "INR"},
	{regexp.MustCompile(`(?i)Rs\.?\s*([\d,]+\.?\d*)\s*Lakh`), 1e5, "INR"},
	{regexp.MustCompile(`(?i)\$\s*([\d,]+\.?\d*)\s*M`), 1e6, "USD"},
	{regexp.MustCompile(`(?i)\$\s*([\d,]+\.?\d*)\s*B`), 1e9, "USD"},
}

// canonicalize extracts monetary amounts from text and normalizes them
// to absolute INR or USD values.
func canonicalize(text string) []store.CanonicalAmount {
	var out []store.CanonicalAmount
	seen := make(map[string]bool)
	for _, p := range amountPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			raw := strings.TrimSpace(m[0])
			if seen[raw] {
				continue
			}
			numStr := strings.ReplaceAll(m[1], ",", "")
			num, err := strconv.ParseFloat(numStr, 64)
			if err != nil {
				continue
			}
			seen[raw] = true
			out = append(out, store.CanonicalAmount{
				Raw:      raw,
				Value:    num * p.multiplier,
				Currency: p.currency,
			})
		}
	}
	return out
}
