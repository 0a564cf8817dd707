package gemarag

import "errors"

var (
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("gemarag: invalid configuration")

	// ErrCorpusNotFound is returned when the chunk database does not exist.
	ErrCorpusNotFound = errors.New("gemarag: chunk database not found")

	// ErrGraphNotBuilt is returned when graph.json is missing or unreadable.
	ErrGraphNotBuilt = errors.New("gemarag: knowledge graph not built")

	// ErrFactsNotFound is returned when the FAQ fact file is missing.
	ErrFactsNotFound = errors.New("gemarag: fact file not found")

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = errors.New("gemarag: embedding generation failed")
)
