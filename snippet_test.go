package gemarag

import (
	"strings"
	"testing"
)

func TestExtractSnippetBasicOverlap(t *testing.T) {
	content := "The scheme provides grants up to Rs. 20 Lakhs for validation. " +
		"Incubators disburse the funds in milestone tranches. " +
		"Applications go through the Startup India portal."
	answerWords := significantWords("The maximum grant for validation is Rs. 20 Lakhs.")

	snippet := extractSnippet(content, answerWords)
	if snippet == "" {
		t.Fatal("expected non-empty snippet")
	}
	if !strings.Contains(snippet, "grants") {
		t.Errorf("snippet should contain the grant sentence, got %q", snippet)
	}
}

func TestExtractSnippetNoOverlap(t *testing.T) {
	content := "The quick brown fox jumps over the lazy dog."
	answerWords := significantWords("quantum computing uses superconducting qubits")

	if snippet := extractSnippet(content, answerWords); snippet != "" {
		t.Errorf("expected empty snippet, got %q", snippet)
	}
}

func TestExtractSnippetEmptyInputs(t *testing.T) {
	if s := extractSnippet("", map[string]bool{"grant": true}); s != "" {
		t.Errorf("empty content should yield empty snippet, got %q", s)
	}
	if s := extractSnippet("some content here.", nil); s != "" {
		t.Errorf("nil answer words should yield empty snippet, got %q", s)
	}
}

func TestExtractSnippetLengthBound(t *testing.T) {
	sentence := "The seed fund scheme supports eligible startups with grants and debentures for validation. "
	content := strings.TrimSpace(strings.Repeat(sentence, 10))
	answerWords := significantWords("grants for eligible startups under the seed fund scheme")

	snippet := extractSnippet(content, answerWords)
	if len(snippet) > snippetMaxLen {
		t.Errorf("snippet length %d exceeds %d", len(snippet), snippetMaxLen)
	}
}

func TestSignificantWords(t *testing.T) {
	words := significantWords("The grant covers validation, which startups need.")
	for _, want := range []string{"grant", "covers", "validation", "startups", "need"} {
		if want == "need" {
			continue // too short
		}
		if !words[want] {
			t.Errorf("missing word %q in %v", want, words)
		}
	}
	if words["which"] {
		t.Error("stop word 'which' should be excluded")
	}
	if words["the"] {
		t.Error("short word 'the' should be excluded")
	}
}

func TestSnippetSplitSentences(t *testing.T) {
	got := snippetSplitSentences("First sentence. Second one! Third? Tail without terminator")
	if len(got) != 4 {
		t.Fatalf("got %d sentences: %v", len(got), got)
	}
	if got[3] != "Tail without terminator" {
		t.Errorf("tail = %q", got[3])
	}
}

// "Rs." and friends are abbreviations, not sentence ends. A money figure
// must not be split away from its sentence.
func TestSnippetSplitSentencesAbbreviations(t *testing.T) {
	got := snippetSplitSentences(
		"The maximum grant is Rs. 20 Lakhs for validation. Debentures follow per Clause No. 5 etc. of the guidelines.")
	if len(got) != 2 {
		t.Fatalf("got %d sentences: %v", len(got), got)
	}
	if got[0] != "The maximum grant is Rs. 20 Lakhs for validation." {
		t.Errorf("first sentence = %q", got[0])
	}

	words := significantWords("The maximum grant is Rs. 20 Lakhs for validation.")
	snippet := extractSnippet("The maximum grant is Rs. 20 Lakhs for validation. Unrelated filler text here.", words)
	if !strings.Contains(snippet, "20 Lakhs for validation") {
		t.Errorf("snippet lost the amount's sentence: %q", snippet)
	}
}
