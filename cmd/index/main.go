// Command index builds the query-time artifacts from a directory of
// source documents: the chunk database with dense and sparse indexes,
// and the knowledge graph.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/RajkumarR2006/gemarag"
	"github.com/RajkumarR2006/gemarag/graph"
	"github.com/RajkumarR2006/gemarag/ingest"
	"github.com/RajkumarR2006/gemarag/llm"
	"github.com/RajkumarR2006/gemarag/store"
)

const embedBatchSize = 32

func main() {
	dataDir := flag.String("data", "", "Directory of source documents (PDF, CSV, XLSX)")
	outDir := flag.String("out", "", "Output directory for artifacts (default ~/.gemarag)")
	configPath := flag.String("config", "", "Path to config file (JSON)")
	skipEmbed := flag.Bool("skip-embed", false, "Build chunks and graph without embeddings")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if *dataDir == "" {
		slog.Error("-data is required")
		os.Exit(2)
	}

	godotenv.Load()

	cfg := gemarag.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
		f.Close()
	}
	if v := os.Getenv("GEMARAG_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("GEMARAG_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("GEMARAG_EMBED_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("GEMARAG_EMBED_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if cfg.Embedding.APIKey == "" && cfg.Embedding.Provider == "groq" {
		cfg.Embedding.APIKey = os.Getenv("GROQ_API_KEY")
	}

	out := *outDir
	if out == "" {
		out = os.Getenv("GEMARAG_DATA_DIR")
	}
	if out == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			out = "."
		} else {
			out = filepath.Join(home, ".gemarag")
		}
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		slog.Error("creating output directory", "path", out, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	chunks, err := ingest.Dir(*dataDir)
	if err != nil {
		slog.Error("ingesting documents", "error", err)
		os.Exit(1)
	}
	if len(chunks) == 0 {
		slog.Error("no chunks produced", "data", *dataDir)
		os.Exit(1)
	}
	slog.Info("ingestion complete", "chunks", len(chunks))

	dbPath := filepath.Join(out, "chunks.db")
	s, err := store.New(dbPath, cfg.EmbeddingDim)
	if err != nil {
		slog.Error("opening store", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer s.Close()

	ids, err := s.InsertChunks(ctx, chunks)
	if err != nil {
		slog.Error("inserting chunks", "error", err)
		os.Exit(1)
	}
	slog.Info("chunks stored", "path", dbPath, "count", len(ids))

	if !*skipEmbed {
		embedder, err := llm.NewProvider(llm.Config{
			Provider: cfg.Embedding.Provider,
			Model:    cfg.Embedding.Model,
			BaseURL:  cfg.Embedding.BaseURL,
			APIKey:   cfg.Embedding.APIKey,
		})
		if err != nil {
			slog.Error("creating embedding provider", "error", err)
			os.Exit(1)
		}
		if err := embedAll(ctx, s, embedder, chunks, ids); err != nil {
			slog.Error("embedding chunks", "error", err)
			os.Exit(1)
		}
	}

	g := graph.Build(chunks)
	graphPath := filepath.Join(out, "graph.json")
	if err := g.Save(graphPath); err != nil {
		slog.Error("saving graph", "path", graphPath, "error", err)
		os.Exit(1)
	}
	slog.Info("graph saved", "path", graphPath,
		"entities", g.Stats.TotalEntities, "relationships", g.Stats.TotalRelationships)

	// Seed an empty fact table so the server can start; curated facts
	// are maintained by hand.
	factsPath := filepath.Join(out, "facts.json")
	if _, err := os.Stat(factsPath); os.IsNotExist(err) {
		if err := os.WriteFile(factsPath, []byte("{}\n"), 0644); err != nil {
			slog.Error("writing facts skeleton", "path", factsPath, "error", err)
			os.Exit(1)
		}
		slog.Info("empty fact table created", "path", factsPath)
	}

	slog.Info("index build complete", "out", out)
}

// embedAll generates embeddings in batches. A failed batch falls back
// to per-chunk embedding so one bad text does not lose the whole batch.
func embedAll(ctx context.Context, s *store.Store, embedder llm.Provider, chunks []store.Chunk, ids []int64) error {
	var failed int
	for i := 0; i < len(chunks); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-i)
		for j := i; j < end; j++ {
			texts[j-i] = chunks[j].Text
		}

		embeddings, err := embedder.Embed(ctx, texts)
		if err != nil {
			slog.Warn("embedding batch failed, falling back to individual",
				"batch_start", i, "error", err)
			for j, text := range texts {
				single, serr := embedder.Embed(ctx, []string{text})
				if serr != nil || len(single) == 0 {
					failed++
					continue
				}
				if serr := s.InsertEmbedding(ctx, ids[i+j], single[0]); serr != nil {
					failed++
				}
			}
			continue
		}

		for j, emb := range embeddings {
			if err := s.InsertEmbedding(ctx, ids[i+j], emb); err != nil {
				slog.Warn("storing embedding failed", "row_id", ids[i+j], "error", err)
				failed++
			}
		}
		slog.Info("embeddings stored", "done", end, "total", len(chunks))
	}

	if failed == len(chunks) {
		return gemarag.ErrEmbeddingFailed
	}
	if failed > 0 {
		slog.Warn("some embeddings failed", "failed", failed, "total", len(chunks))
	}
	return nil
}
