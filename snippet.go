package gemarag

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// snippetMaxLen is the approximate maximum character length for a
// source preview snippet.
const snippetMaxLen = 300

// extractSnippet returns the 1-2 sentences of content that overlap the
// answer's significant words the most. Empty when nothing overlaps.
func extractSnippet(content string, answerWords map[string]bool) string {
	if len(answerWords) == 0 || content == "" {
		return ""
	}

	sentences := snippetSplitSentences(content)
	if len(sentences) == 0 {
		return ""
	}

	scores := make([]int, len(sentences))
	for i, s := range sentences {
		for w := range significantWords(s) {
			if answerWords[w] {
				scores[i]++
			}
		}
	}

	bestIdx := 0
	for i, sc := range scores {
		if sc > scores[bestIdx] {
			bestIdx = i
		}
	}
	if scores[bestIdx] == 0 {
		return ""
	}

	result := sentences[bestIdx]

	// Add the better-scoring adjacent sentence when it fits.
	if len(result) < snippetMaxLen && len(sentences) > 1 {
		adjIdx := -1
		adjScore := 0
		for _, delta := range []int{1, -1} {
			adj := bestIdx + delta
			if adj >= 0 && adj < len(sentences) && scores[adj] > adjScore {
				adjScore = scores[adj]
				adjIdx = adj
			}
		}
		if adjIdx >= 0 && adjScore > 0 {
			combined := result + " " + sentences[adjIdx]
			if adjIdx < bestIdx {
				combined = sentences[adjIdx] + " " + result
			}
			if len(combined) <= snippetMaxLen {
				result = combined
			}
		}
	}

	return result
}

// significantWords returns the set of lowercased words of at least 4
// characters, excluding common stop words.
func significantWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) >= 4 && !snippetStopWords[w] {
			words[w] = true
		}
	}
	return words
}

// snippetSplitSentences splits text at sentence terminators followed by
// whitespace or end of string. A period after a known abbreviation
// ("Rs.", "No.", "etc.") does not end a sentence.
func snippetSplitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		cur.WriteRune(r)
		if r != '.' && r != '?' && r != '!' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && endsWithAbbreviation(cur.String()) {
			continue
		}
		if s := strings.TrimSpace(cur.String()); s != "" {
			sentences = append(sentences, s)
		}
		cur.Reset()
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// snippetAbbreviations are lowercased tokens whose trailing period is
// part of the token, common in money figures and clause references.
var snippetAbbreviations = map[string]bool{
	"rs": true, "no": true, "nos": true, "etc": true,
	"vs": true, "viz": true, "approx": true,
}

// endsWithAbbreviation reports whether s ends in "<abbrev>." for one of
// the known abbreviations.
func endsWithAbbreviation(s string) bool {
	trimmed := strings.TrimSuffix(s, ".")
	if len(trimmed) == len(s) {
		return false
	}
	i := len(trimmed)
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(trimmed[:i])
		if !unicode.IsLetter(r) {
			break
		}
		i -= size
	}
	return snippetAbbreviations[strings.ToLower(trimmed[i:])]
}

var snippetStopWords = func() map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(
		"that this with from have been were they their will would could " +
			"should about which there these those then than them what when " +
			"where your more some such only also very just into over each " +
			"does most after before other being same both between") {
		m[w] = true
	}
	return m
}()
