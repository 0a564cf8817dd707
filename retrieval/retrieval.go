package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RajkumarR2006/gemarag/llm"
	"github.com/RajkumarR2006/gemarag/store"
)

// Config holds retrieval engine configuration.
type Config struct {
	WeightDense  float64
	WeightSparse float64
}

// SearchOptions configures a single search operation.
type SearchOptions struct {
	// MaxResults is the number of fused results returned. Zero or
	// negative asks for nothing and yields an empty result set.
	MaxResults int
	// Weights override the engine defaults when non-zero.
	WeightDense  float64
	WeightSparse float64
}

// SearchTrace records the full breakdown of a hybrid search operation.
type SearchTrace struct {
	DenseResults  int                        `json:"dense_results"`
	SparseResults int                        `json:"sparse_results"`
	IndicResults  int                        `json:"indic_results,omitempty"`
	FusedResults  int                        `json:"fused_results"`
	DenseWeight   float64                    `json:"dense_weight"`
	SparseWeight  float64                    `json:"sparse_weight"`
	CandidateK    int                        `json:"candidate_k"`
	FTSQuery      string                     `json:"fts_query"`
	ElapsedMs     int64                      `json:"elapsed_ms"`
	PerResult     map[string]FusedResultInfo `json:"per_result,omitempty"`
}

// Engine performs hybrid retrieval combining dense vector search and
// sparse BM25 search over the chunk corpus.
type Engine struct {
	store    *store.Store
	embedder llm.Provider
	cfg      Config
}

// New creates a new retrieval engine.
func New(s *store.Store, embedder llm.Provider, cfg Config) *Engine {
	return &Engine{store: s, embedder: embedder, cfg: cfg}
}

// Search runs dense and sparse retrieval concurrently and fuses the two
// candidate lists with a weighted sum. Each channel fetches 2x the
// requested result count so a chunk strong in only one channel can still
// reach the top of the fused ranking.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]store.RetrievalResult, *SearchTrace, error) {
	if opts.MaxResults <= 0 {
		return nil, &SearchTrace{}, nil
	}
	if opts.WeightDense == 0 {
		opts.WeightDense = e.cfg.WeightDense
	}
	if opts.WeightSparse == 0 {
		opts.WeightSparse = e.cfg.WeightSparse
	}

	candidateK := opts.MaxResults * 2

	trace := &SearchTrace{
		DenseWeight:  opts.WeightDense,
		SparseWeight: opts.WeightSparse,
		CandidateK:   candidateK,
	}

	ftsQuery := sanitizeFTSQuery(query)
	trace.FTSQuery = ftsQuery

	searchStart := time.Now()
	slog.Debug("retrieval: starting hybrid search",
		"query_len", len(query), "max_results", opts.MaxResults,
		"weights", fmt.Sprintf("dense=%.1f sparse=%.1f", opts.WeightDense, opts.WeightSparse))

	type result struct {
		results []store.RetrievalResult
		err     error
	}

	denseCh := make(chan result, 1)
	sparseCh := make(chan result, 1)

	go func() {
		r, err := e.denseSearch(ctx, query, candidateK, trace)
		denseCh <- result{r, err}
	}()

	go func() {
		r, err := e.store.FTSSearch(ctx, ftsQuery, candidateK)
		sparseCh <- result{r, err}
	}()

	denseRes := <-denseCh
	sparseRes := <-sparseCh

	if denseRes.err != nil {
		slog.Warn("retrieval: dense search failed", "error", denseRes.err)
	}
	if sparseRes.err != nil {
		slog.Warn("retrieval: sparse search failed", "error", sparseRes.err)
	}
	trace.DenseResults = len(denseRes.results)
	trace.SparseResults = len(sparseRes.results)

	fused, infoMap := fuseWeighted(
		denseRes.results, sparseRes.results,
		opts.WeightDense, opts.WeightSparse,
		opts.MaxResults,
	)

	trace.FusedResults = len(fused)
	trace.PerResult = infoMap
	trace.ElapsedMs = time.Since(searchStart).Milliseconds()

	slog.Debug("retrieval: search complete",
		"dense", trace.DenseResults, "sparse", trace.SparseResults,
		"fused", trace.FusedResults,
		"elapsed", time.Since(searchStart).Round(time.Millisecond))

	if len(fused) == 0 {
		// If both channels failed, surface the first error.
		if denseRes.err != nil {
			return nil, trace, fmt.Errorf("dense search: %w", denseRes.err)
		}
		if sparseRes.err != nil {
			return nil, trace, fmt.Errorf("sparse search: %w", sparseRes.err)
		}
	}

	return fused, trace, nil
}

// denseSearch embeds the query and runs KNN over vec_chunks. Queries
// written in an Indic script additionally hit the non-English slice of
// the corpus; those hits merge into the dense candidate list ahead of
// fusion so Hindi guideline text competes on equal footing.
func (e *Engine) denseSearch(ctx context.Context, query string, k int, trace *SearchTrace) ([]store.RetrievalResult, error) {
	embeddings, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	results, err := e.store.VectorSearch(ctx, embeddings[0], k, "")
	if err != nil {
		return nil, err
	}

	if lang := indicLanguage(query); lang != "" {
		indic, err := e.store.VectorSearch(ctx, embeddings[0], k, lang)
		if err != nil {
			slog.Warn("retrieval: indic-restricted search failed", "language", lang, "error", err)
		} else if len(indic) > 0 {
			if trace != nil {
				trace.IndicResults = len(indic)
			}
			results = mergeDense(results, indic, k)
		}
	}

	return results, nil
}

// mergeDense folds extra dense hits into the primary list, dedupes by
// chunk ID, and keeps the list sorted by score descending.
func mergeDense(primary, extra []store.RetrievalResult, k int) []store.RetrievalResult {
	seen := make(map[string]bool, len(primary))
	for _, r := range primary {
		seen[r.ChunkID] = true
	}

	merged := primary
	for _, r := range extra {
		if !seen[r.ChunkID] {
			seen[r.ChunkID] = true
			merged = append(merged, r)
		}
	}

	// Insertion-sort the tail back into score order; extra lists are small.
	for i := len(primary); i < len(merged); i++ {
		for j := i; j > 0 && merged[j].Score > merged[j-1].Score; j-- {
			merged[j], merged[j-1] = merged[j-1], merged[j]
		}
	}

	if len(merged) > k {
		merged = merged[:k]
	}
	return merged
}
