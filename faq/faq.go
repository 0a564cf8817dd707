// Package faq answers high-frequency policy questions from a curated
// fact table. Facts live in facts.json as a map of canonical question
// key to answer text; lookup matches keys as substrings of the query
// and prefers the longest key so "maximum grant amount" beats "grant".
package faq

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Table is a loaded fact table.
type Table struct {
	facts map[string]string
}

// Load reads a facts.json file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading facts: %w", err)
	}
	var facts map[string]string
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, fmt.Errorf("decoding facts: %w", err)
	}
	return New(facts), nil
}

// New builds a table from an in-memory fact map. Keys are lowercased.
func New(facts map[string]string) *Table {
	t := &Table{facts: make(map[string]string, len(facts))}
	for k, v := range facts {
		t.facts[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return t
}

// Len reports the number of facts in the table.
func (t *Table) Len() int {
	return len(t.facts)
}

// Lookup returns the answer for the longest fact key that appears in
// the query, or ok=false when no key matches. Equal-length keys tie
// toward the lexicographically smaller one so repeated lookups agree.
func (t *Table) Lookup(query string) (answer string, ok bool) {
	lower := strings.ToLower(query)
	bestKey := ""
	for key, ans := range t.facts {
		if key == "" || !strings.Contains(lower, key) {
			continue
		}
		if len(key) > len(bestKey) || (len(key) == len(bestKey) && key < bestKey) {
			bestKey = key
			answer = ans
			ok = true
		}
	}
	return answer, ok
}
