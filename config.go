package gemarag

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for the engine.
type Config struct {
	// DataDir is the directory holding the built artifacts: the chunk
	// database, graph.json and facts.json. Defaults to ~/.gemarag/.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// DBPath overrides the chunk database location. If empty, the database
	// is <DataDir>/chunks.db.
	DBPath string `json:"db_path" yaml:"db_path"`

	// GraphPath overrides the knowledge graph location. If empty,
	// <DataDir>/graph.json.
	GraphPath string `json:"graph_path" yaml:"graph_path"`

	// FactsPath overrides the FAQ fact file location. If empty,
	// <DataDir>/facts.json.
	FactsPath string `json:"facts_path" yaml:"facts_path"`

	// LLM providers
	Chat      LLMConfig `json:"chat" yaml:"chat"`
	Embedding LLMConfig `json:"embedding" yaml:"embedding"`

	// Retrieval fusion weights. Dense and sparse scores are combined as
	// WeightDense*dense + WeightSparse*(sparse/maxSparse).
	WeightDense  float64 `json:"weight_dense" yaml:"weight_dense"`
	WeightSparse float64 `json:"weight_sparse" yaml:"weight_sparse"`

	// TopK is the number of fused chunks fed to answer generation.
	TopK int `json:"top_k" yaml:"top_k"`

	// EmbeddingDim must match the embedding model's output size.
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // groq, ollama, openai
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config with the defaults used in production:
// Groq for chat, a local Ollama instance for embeddings, artifacts under
// ~/.gemarag/.
func DefaultConfig() Config {
	return Config{
		Chat: LLMConfig{
			Provider: "groq",
			Model:    "llama-3.3-70b-versatile",
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		WeightDense:  0.6,
		WeightSparse: 0.4,
		TopK:         5,
		EmbeddingDim: 768,
	}
}

// Validate reports configuration errors that would break construction.
func (c *Config) Validate() error {
	if c.WeightDense < 0 || c.WeightSparse < 0 {
		return ErrInvalidConfig
	}
	if c.TopK <= 0 || c.EmbeddingDim <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// resolveDataDir computes the artifact directory, defaulting to ~/.gemarag/
// with a cwd fallback when the home directory cannot be resolved.
func (c *Config) resolveDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".gemarag")
}

func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.resolveDataDir(), "chunks.db")
}

func (c *Config) resolveGraphPath() string {
	if c.GraphPath != "" {
		return c.GraphPath
	}
	return filepath.Join(c.resolveDataDir(), "graph.json")
}

func (c *Config) resolveFactsPath() string {
	if c.FactsPath != "" {
		return c.FactsPath
	}
	return filepath.Join(c.resolveDataDir(), "facts.json")
}
