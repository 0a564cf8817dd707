//go:build cgo

package gemarag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RajkumarR2006/gemarag/graph"
	"github.com/RajkumarR2006/gemarag/llm"
	"github.com/RajkumarR2006/gemarag/router"
	"github.com/RajkumarR2006/gemarag/store"
)

const testChatAnswer = "The maximum grant is Rs. 20 Lakhs for validation [Source 1]."

// newLLMServer serves OpenAI-compatible chat and embedding endpoints
// with fixed responses.
func newLLMServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/chat/completions":
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]string{"content": testChatAnswer}, "finish_reason": "stop"},
				},
				"model": "test",
			})
		case "/v1/embeddings":
			var req struct {
				Input []string `json:"input"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			data := make([]map[string]any, len(req.Input))
			for i := range req.Input {
				data[i] = map[string]any{
					"embedding": []float32{0.1, 0.2, 0.3, 0.4},
					"index":     i,
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"data": data})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newTestEngine builds the on-disk artifacts and an engine wired to a
// fake LLM backend.
func newTestEngine(t *testing.T) Engine {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	chunks := []store.Chunk{
		{
			ChunkID: "aaaa0001", Source: "SISFS_Guidelines.pdf", Page: 3,
			Text:       "The maximum grant under the scheme is Rs. 20 Lakhs for validation of proof of concept.",
			Language:   "en",
			TrustScore: 0.95,
		},
		{
			ChunkID: "aaaa0002", Source: "SISFS_Guidelines.pdf", Page: 5,
			Text:       "Incubators disburse funds to selected startups in milestone based tranches.",
			Language:   "en",
			TrustScore: 0.95,
		},
	}

	s, err := store.New(filepath.Join(dir, "chunks.db"), 4)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	ids, err := s.InsertChunks(ctx, chunks)
	if err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}
	for _, id := range ids {
		if err := s.InsertEmbedding(ctx, id, []float32{0.1, 0.2, 0.3, 0.4}); err != nil {
			t.Fatalf("InsertEmbedding: %v", err)
		}
	}
	s.Close()

	g := graph.Build(chunks)
	if err := g.Save(filepath.Join(dir, "graph.json")); err != nil {
		t.Fatalf("graph save: %v", err)
	}

	facts := `{"interest rate": "Debt instruments carry an interest rate not above the repo rate."}`
	if err := os.WriteFile(filepath.Join(dir, "facts.json"), []byte(facts), 0644); err != nil {
		t.Fatal(err)
	}

	srv := newLLMServer(t)
	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.Chat = LLMConfig{Provider: "custom", Model: "test", BaseURL: srv.URL}
	cfg.Embedding = LLMConfig{Provider: "custom", Model: "test-embed", BaseURL: srv.URL}
	cfg.TopK = 3
	cfg.EmbeddingDim = 4

	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestNewMissingDatabase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Chat = LLMConfig{Provider: "custom", Model: "test", BaseURL: "http://localhost:1"}
	cfg.Embedding = cfg.Chat

	_, err := New(cfg)
	if !errors.Is(err, ErrCorpusNotFound) {
		t.Fatalf("err = %v, want ErrCorpusNotFound", err)
	}
}

func TestAskSmallTalk(t *testing.T) {
	eng := newTestEngine(t)

	ans, err := eng.Ask(context.Background(), "hello!")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Intent != router.IntentSmallTalk {
		t.Errorf("intent = %s", ans.Intent)
	}
	if ans.Source != SourceChatAI {
		t.Errorf("source = %s, want CHAT_AI", ans.Source)
	}
	if ans.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", ans.Confidence)
	}
}

func TestAskSmallTalkFallback(t *testing.T) {
	eng := newTestEngine(t).(*engine)
	// Point the chat provider at a dead endpoint.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	chatLLM, err := llm.NewProvider(llm.Config{Provider: "custom", Model: "test", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	eng.chatLLM = chatLLM

	ans, aerr := eng.Ask(context.Background(), "hi")
	if aerr != nil {
		t.Fatalf("Ask: %v", aerr)
	}
	if ans.Source != SourceChatSystem {
		t.Errorf("source = %s, want CHAT_SYSTEM", ans.Source)
	}
	if ans.Text != smallTalkFallback {
		t.Errorf("text = %q", ans.Text)
	}
}

func TestAskCapability(t *testing.T) {
	eng := newTestEngine(t)

	ans, err := eng.Ask(context.Background(), "what can you do?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Source != SourceChatSystem {
		t.Errorf("source = %s, want CHAT_SYSTEM", ans.Source)
	}
	if !strings.Contains(ans.Text, "Funding Schemes") {
		t.Errorf("text = %q", ans.Text)
	}
}

func TestAskGraph(t *testing.T) {
	eng := newTestEngine(t)

	ans, err := eng.Ask(context.Background(), "how many entities are in the graph?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Source != SourceGraph {
		t.Errorf("source = %s, want GRAPH", ans.Source)
	}
	if ans.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", ans.Confidence)
	}
	if !strings.Contains(ans.Text, "entities") {
		t.Errorf("text = %q", ans.Text)
	}
}

func TestAskGraphMissFallsThrough(t *testing.T) {
	eng := newTestEngine(t)

	// Routed GRAPH by "list of" but no graph handler recognizes the
	// query, so it falls through to retrieval.
	ans, err := eng.Ask(context.Background(), "List of documents required for the application")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Intent != router.IntentGraph {
		t.Errorf("intent = %s, want GRAPH", ans.Intent)
	}
	if ans.Source != SourceSemantic {
		t.Errorf("source = %s, want SEMANTIC", ans.Source)
	}
}

func TestAskFAQ(t *testing.T) {
	eng := newTestEngine(t)

	ans, err := eng.Ask(context.Background(), "What is the interest rate on seed fund loans?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Source != SourceFAQ {
		t.Errorf("source = %s, want FAQ", ans.Source)
	}
	if !strings.Contains(ans.Text, "repo rate") {
		t.Errorf("text = %q", ans.Text)
	}
}

func TestAskFAQMissFallsThrough(t *testing.T) {
	eng := newTestEngine(t)

	// Routed FAQ by "maximum grant" but the fact table has no such key,
	// so the query falls through to retrieval.
	ans, err := eng.Ask(context.Background(), "What is the maximum grant under SISFS?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Intent != router.IntentFAQ {
		t.Errorf("intent = %s, want FAQ", ans.Intent)
	}
	if ans.Source != SourceSemantic {
		t.Errorf("source = %s, want SEMANTIC", ans.Source)
	}
}

func TestAskSemantic(t *testing.T) {
	eng := newTestEngine(t)

	ans, err := eng.Ask(context.Background(), "Explain the fund disbursement process")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Source != SourceSemantic {
		t.Errorf("source = %s, want SEMANTIC", ans.Source)
	}
	if ans.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", ans.Confidence)
	}
	if len(ans.Sources) == 0 {
		t.Fatal("semantic answer has no sources")
	}
	if ans.Verification == nil {
		t.Fatal("semantic answer has no verification report")
	}
	if !ans.Verified {
		t.Errorf("answer should verify: %s", ans.Verification.Summary())
	}
	if !strings.Contains(ans.Text, "[Source 1]") {
		t.Errorf("citation lost from answer: %q", ans.Text)
	}
}

func TestAskLogsQuery(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Ask(ctx, "what can you do?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	stats, err := eng.Store().Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Queries == 0 {
		t.Error("query was not logged")
	}
}

func TestGraphStats(t *testing.T) {
	eng := newTestEngine(t)
	if got := eng.GraphStats(); got.TotalEntities == 0 {
		t.Error("graph stats report zero entities")
	}
}
