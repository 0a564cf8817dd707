package retrieval

import (
	"strings"
	"unicode"
)

// ftsOperators are the FTS5 syntax characters stripped from user queries
// before they reach the MATCH expression.
const ftsOperators = `"*()+-^:?[]{}!.,;`

// sanitizeFTSQuery turns free text into a safe FTS5 expression: the full
// phrase in quotes, OR-ed with each significant term for broader recall.
func sanitizeFTSQuery(query string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(ftsOperators, r) {
			return -1
		}
		return r
	}, query)

	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return query
	}

	var parts []string
	if len(words) > 1 {
		parts = append(parts, `"`+strings.Join(words, " ")+`"`)
	}
	for _, w := range words {
		if len(w) > 2 && !isStopWord(w) {
			parts = append(parts, w)
		}
	}
	if len(parts) == 0 {
		return strings.Join(words, " OR ")
	}
	return strings.Join(parts, " OR ")
}

// indicLanguage maps a query written in an Indic script to its corpus
// language tag. Only Devanagari is recognized; the corpus carries Hindi
// translations of the guidelines and nothing else non-Latin.
func indicLanguage(query string) string {
	if strings.ContainsFunc(query, func(r rune) bool {
		return unicode.Is(unicode.Devanagari, r)
	}) {
		return "hi"
	}
	return ""
}

var stopWords = func() map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(
		"the a an and or but in on at to for of with by from " +
			"is are was were be been being have has had " +
			"do does did will would could should may might must shall can " +
			"this that these those what which who whom where when how why " +
			"not no nor if then than so as about into between") {
		m[w] = true
	}
	return m
}()

func isStopWord(w string) bool {
	return stopWords[strings.ToLower(w)]
}
