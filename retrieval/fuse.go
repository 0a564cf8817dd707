package retrieval

import (
	"sort"

	"github.com/RajkumarR2006/gemarag/store"
)

// FusedResultInfo records the per-channel breakdown for one fused result.
type FusedResultInfo struct {
	DenseScore  float64  `json:"dense_score"`
	SparseScore float64  `json:"sparse_score"`
	Methods     []string `json:"methods"`
}

// fuseWeighted merges dense and sparse results into a single ranking:
//
//	fused = wDense*dense + wSparse*(sparse/maxSparse)
//
// Dense scores are cosine similarities already in [0,1]; sparse BM25
// scores are unbounded and get max-normalized. When the sparse channel is
// empty or all-zero, maxSparse falls back to 1.0 so sparse contributions
// are simply the raw (zero) scores.
//
// Ordering is deterministic: sort is stable and entries are seeded in
// dense-channel order, so equal fused scores keep the dense ranking.
func fuseWeighted(dense, sparse []store.RetrievalResult, wDense, wSparse float64, maxResults int) ([]store.RetrievalResult, map[string]FusedResultInfo) {
	type fusedEntry struct {
		result store.RetrievalResult
		info   FusedResultInfo
		score  float64
		order  int // seeding order, for the tie-break
	}

	entries := make(map[string]*fusedEntry)
	order := 0

	for _, r := range dense {
		entries[r.ChunkID] = &fusedEntry{
			result: r,
			info:   FusedResultInfo{DenseScore: r.Score, Methods: []string{"dense"}},
			score:  wDense * r.Score,
			order:  order,
		}
		order++
	}

	maxSparse := 0.0
	for _, r := range sparse {
		if r.Score > maxSparse {
			maxSparse = r.Score
		}
	}
	if maxSparse == 0 {
		maxSparse = 1.0
	}

	for _, r := range sparse {
		norm := r.Score / maxSparse
		if e, ok := entries[r.ChunkID]; ok {
			e.info.SparseScore = r.Score
			e.info.Methods = append(e.info.Methods, "sparse")
			e.score += wSparse * norm
			continue
		}
		entries[r.ChunkID] = &fusedEntry{
			result: r,
			info:   FusedResultInfo{SparseScore: r.Score, Methods: []string{"sparse"}},
			score:  wSparse * norm,
			order:  order,
		}
		order++
	}

	sorted := make([]*fusedEntry, 0, len(entries))
	for _, e := range entries {
		sorted = append(sorted, e)
	}
	// Pre-sort by seeding order so the stable score sort breaks ties in
	// dense-channel order.
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].order < sorted[j].order
	})
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].score > sorted[j].score
	})

	if maxResults > 0 && len(sorted) > maxResults {
		sorted = sorted[:maxResults]
	}

	results := make([]store.RetrievalResult, len(sorted))
	infoMap := make(map[string]FusedResultInfo, len(sorted))
	for i, e := range sorted {
		e.result.Score = e.score
		results[i] = e.result
		infoMap[e.result.ChunkID] = e.info
	}
	return results, infoMap
}
