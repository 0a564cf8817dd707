// Package verify checks generated answers against their retrieved sources.
// Three independent layers run over every answer: citation indices must be
// in range, Indian-format money amounts must appear in at least one source,
// and the answer's key terms must be covered by the source text. The
// verifier never blocks an answer; it reports issues and repairs what it
// can (out-of-range citations are clamped down to the last real source).
package verify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/RajkumarR2006/gemarag/store"
)

// Layer names as they appear in reports.
const (
	LayerCitations = "citations"
	LayerNumeric   = "numeric"
	LayerSemantic  = "semantic"
)

// LayerResult is the outcome of a single verification layer.
type LayerResult struct {
	Name   string   `json:"name"`
	Passed bool     `json:"passed"`
	Issues []string `json:"issues,omitempty"`
}

// Report is the combined verdict over an answer.
type Report struct {
	Layers   []LayerResult `json:"layers"`
	Verified bool          `json:"verified"`
	// Repaired is the answer text after citation clamping. Equal to the
	// input when nothing needed repair.
	Repaired string `json:"repaired"`
}

// Layer returns the named layer result, or nil.
func (r *Report) Layer(name string) *LayerResult {
	for i := range r.Layers {
		if r.Layers[i].Name == name {
			return &r.Layers[i]
		}
	}
	return nil
}

// Summary renders the issues across all layers, one line per layer.
func (r *Report) Summary() string {
	var parts []string
	for _, l := range r.Layers {
		if !l.Passed {
			parts = append(parts, l.Name+": "+strings.Join(l.Issues, "; "))
		}
	}
	if len(parts) == 0 {
		return "all checks passed"
	}
	return strings.Join(parts, "\n")
}

var (
	citationPattern = regexp.MustCompile(`\[Source (\d+)\]`)
	amountPattern   = regexp.MustCompile(`Rs\.?\s*(\d+(?:,\d+)*)\s*(Lakhs?|Crores?|lakh|crore)`)
	termPattern     = regexp.MustCompile(`\b\w{4,}\b`)
)

// semanticCoverageThreshold is the minimum fraction of key answer terms
// that must appear in the joined source text.
const semanticCoverageThreshold = 0.5

// maxSemanticTerms caps how many key terms the semantic layer samples.
const maxSemanticTerms = 10

// Verify runs all three layers over an answer and its sources.
func Verify(answer string, sources []store.RetrievalResult) *Report {
	report := &Report{}

	citations := checkCitations(answer, len(sources))
	numeric := checkNumeric(answer, sources)
	semantic := checkSemantic(answer, sources)

	report.Layers = []LayerResult{citations, numeric, semantic}
	report.Verified = citations.Passed && numeric.Passed && semantic.Passed
	report.Repaired = RepairCitations(answer, len(sources))
	return report
}

// checkCitations validates that every [Source N] index points at one of
// the provided sources.
func checkCitations(answer string, numSources int) LayerResult {
	result := LayerResult{Name: LayerCitations, Passed: true}

	for _, m := range citationPattern.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n < 1 || n > numSources {
			result.Passed = false
			result.Issues = append(result.Issues,
				fmt.Sprintf("citation [Source %d] out of range (have %d sources)", n, numSources))
		}
	}
	return result
}

// checkNumeric validates that every rupee amount stated in the answer is
// grounded in the sources. An amount passes when its comma-stripped
// digits appear either in a source's canonical amounts (normalized money
// strings attached at ingestion) or anywhere in the joined source text.
func checkNumeric(answer string, sources []store.RetrievalResult) LayerResult {
	result := LayerResult{Name: LayerNumeric, Passed: true}

	matches := amountPattern.FindAllStringSubmatch(answer, -1)
	if len(matches) == 0 {
		return result
	}

	var joined strings.Builder
	var canonical []string
	for _, s := range sources {
		joined.WriteString(strings.ToLower(s.Text))
		joined.WriteString(" ")
		for _, c := range s.Canonicals {
			canonical = append(canonical, strings.ReplaceAll(strings.ToLower(c.Raw), ",", ""))
		}
	}
	corpus := strings.ReplaceAll(joined.String(), ",", "")

	for _, m := range matches {
		digits := strings.ReplaceAll(m[1], ",", "")

		grounded := strings.Contains(corpus, digits)
		for _, canon := range canonical {
			if grounded {
				break
			}
			grounded = strings.Contains(canon, digits)
		}
		if !grounded {
			result.Passed = false
			result.Issues = append(result.Issues,
				fmt.Sprintf("amount %q not found in sources", strings.TrimSpace(m[0])))
		}
	}
	return result
}

// checkSemantic samples the first key terms of the answer and measures
// how many appear in the joined source text.
func checkSemantic(answer string, sources []store.RetrievalResult) LayerResult {
	result := LayerResult{Name: LayerSemantic, Passed: true}

	if strings.TrimSpace(answer) == "" {
		result.Passed = false
		result.Issues = append(result.Issues, "empty answer")
		return result
	}

	terms := keyTerms(answer)
	if len(terms) == 0 {
		return result
	}

	var joined strings.Builder
	for _, s := range sources {
		joined.WriteString(strings.ToLower(s.Text))
		joined.WriteString(" ")
	}
	corpus := joined.String()

	found := 0
	var missing []string
	for _, t := range terms {
		if strings.Contains(corpus, t) {
			found++
		} else {
			missing = append(missing, t)
		}
	}

	coverage := float64(found) / float64(len(terms))
	if coverage < semanticCoverageThreshold {
		result.Passed = false
		result.Issues = append(result.Issues,
			fmt.Sprintf("only %.0f%% of key terms grounded in sources (missing: %s)",
				coverage*100, strings.Join(missing, ", ")))
	}
	return result
}

// keyTerms extracts up to maxSemanticTerms significant terms from the
// answer, in order of appearance.
func keyTerms(answer string) []string {
	var terms []string
	seen := make(map[string]bool)
	for _, t := range termPattern.FindAllString(strings.ToLower(answer), -1) {
		if semanticStopWords[t] || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
		if len(terms) >= maxSemanticTerms {
			break
		}
	}
	return terms
}

// RepairCitations clamps out-of-range citation indices down to the last
// real source. Indices are never raised, and with no sources there is
// nothing valid to clamp to, so the answer passes through unchanged.
func RepairCitations(answer string, numSources int) string {
	if numSources < 1 {
		return answer
	}
	return citationPattern.ReplaceAllStringFunc(answer, func(m string) string {
		sub := citationPattern.FindStringSubmatch(m)
		n, err := strconv.Atoi(sub[1])
		if err != nil || n <= numSources {
			return m
		}
		return fmt.Sprintf("[Source %d]", numSources)
	})
}

// semanticStopWords are words too generic to count as grounding evidence.
// Includes the scheme's own name and citation scaffolding, which appear
// in nearly every answer regardless of grounding.
var semanticStopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true,
	"have": true, "been": true, "which": true, "their": true,
	"there": true, "about": true, "would": true, "under": true,
	"shall": true, "will": true, "your": true, "they": true,
	"them": true, "what": true, "when": true, "where": true,
	"also": true, "such": true, "these": true, "those": true,
	"source": true, "sources": true, "sisfs": true,
}
