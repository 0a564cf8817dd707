package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/RajkumarR2006/gemarag/store"
)

// Asking for zero or fewer results yields an empty set without touching
// the store or the embedder.
func TestSearchNonPositiveMaxResults(t *testing.T) {
	e := New(nil, nil, Config{WeightDense: 0.6, WeightSparse: 0.4})

	for _, k := range []int{0, -1} {
		results, trace, err := e.Search(context.Background(), "seed fund grant", SearchOptions{MaxResults: k})
		if err != nil {
			t.Fatalf("Search(k=%d): %v", k, err)
		}
		if len(results) != 0 {
			t.Errorf("Search(k=%d) returned %d results, want 0", k, len(results))
		}
		if trace == nil {
			t.Errorf("Search(k=%d) returned nil trace", k)
		}
	}
}

func TestFuseWeighted(t *testing.T) {
	dense := []store.RetrievalResult{
		{ChunkID: "a", Score: 0.9},
		{ChunkID: "b", Score: 0.5},
	}
	sparse := []store.RetrievalResult{
		{ChunkID: "b", Score: 8.0},
		{ChunkID: "c", Score: 4.0},
	}

	results, infoMap := fuseWeighted(dense, sparse, 0.6, 0.4, 10)

	if len(results) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(results))
	}

	// Verify method tracking
	if info, ok := infoMap["b"]; !ok || len(info.Methods) != 2 {
		t.Errorf("chunk b should have 2 methods (dense+sparse), got %v", infoMap["b"])
	}
	if info, ok := infoMap["a"]; !ok || len(info.Methods) != 1 {
		t.Errorf("chunk a should have 1 method (dense), got %v", infoMap["a"])
	}

	// Compute expected scores manually. maxSparse = 8.0.
	//
	// Chunk a: 0.6*0.9                  = 0.54
	// Chunk b: 0.6*0.5 + 0.4*(8.0/8.0)  = 0.70
	// Chunk c: 0.4*(4.0/8.0)            = 0.20
	scoreA := 0.6 * 0.9
	scoreB := 0.6*0.5 + 0.4
	scoreC := 0.4 * 0.5

	if results[0].ChunkID != "b" {
		t.Errorf("expected chunk b first, got %s", results[0].ChunkID)
	}
	if results[1].ChunkID != "a" {
		t.Errorf("expected chunk a second, got %s", results[1].ChunkID)
	}
	if results[2].ChunkID != "c" {
		t.Errorf("expected chunk c last, got %s", results[2].ChunkID)
	}

	const eps = 1e-9
	for i, want := range []float64{scoreB, scoreA, scoreC} {
		if diff := results[i].Score - want; diff < -eps || diff > eps {
			t.Errorf("result %d score: got %f, want %f", i, results[i].Score, want)
		}
	}
}

func TestFuseWeightedMaxResults(t *testing.T) {
	dense := []store.RetrievalResult{
		{ChunkID: "a", Score: 0.9},
		{ChunkID: "b", Score: 0.8},
		{ChunkID: "c", Score: 0.7},
	}

	results, _ := fuseWeighted(dense, nil, 0.6, 0.4, 2)
	if len(results) != 2 {
		t.Errorf("expected 2 results with maxResults=2, got %d", len(results))
	}
}

func TestFuseWeightedEmptyInputs(t *testing.T) {
	results, _ := fuseWeighted(nil, nil, 0.6, 0.4, 10)
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty inputs, got %d", len(results))
	}
}

// With no sparse hits maxSparse falls back to 1.0 and the dense ranking
// passes through unchanged.
func TestFuseWeightedEmptySparse(t *testing.T) {
	dense := []store.RetrievalResult{
		{ChunkID: "a", Score: 0.9},
		{ChunkID: "b", Score: 0.4},
	}

	results, _ := fuseWeighted(dense, nil, 0.6, 0.4, 10)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ChunkID != "a" || results[1].ChunkID != "b" {
		t.Errorf("dense ordering not preserved: %s, %s", results[0].ChunkID, results[1].ChunkID)
	}

	const eps = 1e-9
	if diff := results[0].Score - 0.6*0.9; diff < -eps || diff > eps {
		t.Errorf("score: got %f, want %f", results[0].Score, 0.6*0.9)
	}
}

// All-zero sparse scores must not divide by zero.
func TestFuseWeightedZeroSparseScores(t *testing.T) {
	sparse := []store.RetrievalResult{
		{ChunkID: "a", Score: 0},
		{ChunkID: "b", Score: 0},
	}

	results, _ := fuseWeighted(nil, sparse, 0.6, 0.4, 10)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Score != 0 {
			t.Errorf("chunk %s: expected zero fused score, got %f", r.ChunkID, r.Score)
		}
	}
}

// Equal fused scores keep the dense-channel ordering.
func TestFuseWeightedTieBreak(t *testing.T) {
	dense := []store.RetrievalResult{
		{ChunkID: "first", Score: 0.5},
		{ChunkID: "second", Score: 0.5},
		{ChunkID: "third", Score: 0.5},
	}

	results, _ := fuseWeighted(dense, nil, 0.6, 0.4, 10)
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if results[i].ChunkID != id {
			t.Errorf("position %d: got %s, want %s", i, results[i].ChunkID, id)
		}
	}
}

func TestSanitizeFTSQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "plain text",
			input: "seed fund eligibility criteria",
		},
		{
			name:  "special characters removed",
			input: `"SISFS" + (grant) - amount*`,
		},
		{
			name:  "colons and carets",
			input: "scheme:SISFS category:grant ^boost",
		},
		{
			name:  "single word",
			input: "incubator",
		},
		{
			name:  "short words filtered",
			input: "a to be or not",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeFTSQuery(tt.input)

			// Result should never contain unescaped FTS5 operators.
			for _, ch := range []string{"*", "(", ")", "+", "^", ":"} {
				if strings.Contains(result, ch) {
					t.Errorf("sanitized query still contains %q: %s", ch, result)
				}
			}

			if tt.name == "plain text" && result == "" {
				t.Error("expected non-empty result for plain text input")
			}
		})
	}
}

func TestSanitizeFTSQueryMultiWord(t *testing.T) {
	result := sanitizeFTSQuery("SISFS grant amount")

	// Multi-word inputs should produce quoted phrase + individual terms joined with OR.
	if result == "" {
		t.Fatal("expected non-empty result")
	}
	if !strings.Contains(result, "OR") {
		t.Errorf("expected OR in multi-word query, got: %s", result)
	}
}

func TestIndicLanguage(t *testing.T) {
	if lang := indicLanguage("बीज निधि योजना क्या है?"); lang != "hi" {
		t.Errorf("devanagari query: got %q, want hi", lang)
	}
	if lang := indicLanguage("what is the seed fund scheme?"); lang != "" {
		t.Errorf("latin query: got %q, want empty", lang)
	}
	if lang := indicLanguage("seed fund योजना"); lang != "hi" {
		t.Errorf("mixed query: got %q, want hi", lang)
	}
}

func TestMergeDense(t *testing.T) {
	primary := []store.RetrievalResult{
		{ChunkID: "a", Score: 0.9},
		{ChunkID: "b", Score: 0.5},
	}
	extra := []store.RetrievalResult{
		{ChunkID: "b", Score: 0.5}, // duplicate, dropped
		{ChunkID: "c", Score: 0.7},
	}

	merged := mergeDense(primary, extra, 10)
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged results, got %d", len(merged))
	}

	want := []string{"a", "c", "b"}
	for i, id := range want {
		if merged[i].ChunkID != id {
			t.Errorf("position %d: got %s, want %s", i, merged[i].ChunkID, id)
		}
	}
}

func TestIsStopWord(t *testing.T) {
	stops := []string{"the", "a", "an", "and", "or", "is", "are", "in", "on"}
	for _, w := range stops {
		if !isStopWord(w) {
			t.Errorf("expected %q to be a stop word", w)
		}
	}

	nonStops := []string{"grant", "incubator", "startup", "SISFS", "eligibility"}
	for _, w := range nonStops {
		if isStopWord(w) {
			t.Errorf("expected %q not to be a stop word", w)
		}
	}
}
