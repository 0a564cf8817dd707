// Package gemarag answers questions about Indian startup funding policy.
// A query is classified by an ordered rule router and dispatched to one
// of five routes: LLM small talk, a canned capability answer, the
// knowledge graph, a curated FAQ table, or hybrid retrieval followed by
// LLM generation and answer verification.
package gemarag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/RajkumarR2006/gemarag/faq"
	"github.com/RajkumarR2006/gemarag/graph"
	"github.com/RajkumarR2006/gemarag/llm"
	"github.com/RajkumarR2006/gemarag/retrieval"
	"github.com/RajkumarR2006/gemarag/router"
	"github.com/RajkumarR2006/gemarag/store"
	"github.com/RajkumarR2006/gemarag/verify"
)

// Answer source labels.
const (
	SourceChatAI     = "CHAT_AI"
	SourceChatSystem = "CHAT_SYSTEM"
	SourceFAQ        = "FAQ"
	SourceGraph      = "GRAPH"
	SourceSemantic   = "SEMANTIC"
)

// Engine is the main entry point for the question-answering pipeline.
type Engine interface {
	// Ask classifies a query, dispatches it to the right route and
	// returns the answer.
	Ask(ctx context.Context, query string) (*Answer, error)

	// GraphStats reports the loaded knowledge graph statistics.
	GraphStats() graph.Stats

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// Answer is the result of a query.
type Answer struct {
	Text         string         `json:"text"`
	Source       string         `json:"source"`
	Confidence   float64        `json:"confidence"`
	Intent       router.Intent  `json:"intent"`
	Verified     bool           `json:"verified"`
	Sources      []Source       `json:"sources,omitempty"`
	Verification *verify.Report `json:"verification,omitempty"`
	ElapsedMs    int64          `json:"elapsed_ms"`
}

// Source is a retrieved chunk backing a semantic answer.
type Source struct {
	ChunkID    string  `json:"chunk_id"`
	Filename   string  `json:"filename"`
	Page       int     `json:"page"`
	Snippet    string  `json:"snippet,omitempty"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	TrustScore float64 `json:"trust_score"`
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg       Config
	store     *store.Store
	chatLLM   llm.Provider
	embedLLM  llm.Provider
	graphEng  *graph.Engine
	facts     *faq.Table
	retriever *retrieval.Engine
}

// New creates an engine from configuration. The chunk database,
// graph.json and facts.json must already exist (built by cmd/index);
// a missing artifact is a construction error, not a degraded mode.
func New(cfg Config) (Engine, error) {
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = 768
	}
	if cfg.TopK == 0 {
		cfg.TopK = 5
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := store.Open(cfg.resolveDBPath(), cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorpusNotFound, err)
	}

	g, err := graph.Load(cfg.resolveGraphPath())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrGraphNotBuilt, err)
	}

	facts, err := faq.Load(cfg.resolveFactsPath())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrFactsNotFound, err)
	}

	chatLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Chat.Provider,
		Model:    cfg.Chat.Model,
		BaseURL:  cfg.Chat.BaseURL,
		APIKey:   cfg.Chat.APIKey,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}

	embedLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
		APIKey:   cfg.Embedding.APIKey,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	retriever := retrieval.New(s, embedLLM, retrieval.Config{
		WeightDense:  cfg.WeightDense,
		WeightSparse: cfg.WeightSparse,
	})

	slog.Info("engine ready",
		"graph_entities", g.Stats.TotalEntities,
		"graph_relationships", g.Stats.TotalRelationships,
		"facts", facts.Len())

	return &engine{
		cfg:       cfg,
		store:     s,
		chatLLM:   chatLLM,
		embedLLM:  embedLLM,
		graphEng:  graph.NewEngine(g),
		facts:     facts,
		retriever: retriever,
	}, nil
}

// Ask routes a query and produces an answer.
func (e *engine) Ask(ctx context.Context, query string) (*Answer, error) {
	start := time.Now()
	cls := router.Classify(query)
	slog.Debug("query classified",
		"intent", cls.Intent, "confidence", cls.Confidence, "matched", cls.Matched)

	var (
		ans *Answer
		err error
	)
	switch cls.Intent {
	case router.IntentSmallTalk:
		ans = e.smallTalk(ctx, query)
	case router.IntentCapability:
		ans = &Answer{
			Text:       capabilityAnswer,
			Source:     SourceChatSystem,
			Confidence: cls.Confidence,
			Verified:   true,
		}
	case router.IntentGraph:
		if text, ok := e.graphEng.Answer(query); ok {
			ans = &Answer{
				Text:       text,
				Source:     SourceGraph,
				Confidence: cls.Confidence,
				Verified:   true,
			}
			break
		}
		// No graph handler matched; fall back to full retrieval.
		ans, err = e.semantic(ctx, query)
	case router.IntentFAQ:
		if text, ok := e.facts.Lookup(query); ok {
			ans = &Answer{
				Text:       text,
				Source:     SourceFAQ,
				Confidence: cls.Confidence,
				Verified:   true,
			}
			break
		}
		// No curated fact matched; fall back to full retrieval.
		ans, err = e.semantic(ctx, query)
	default:
		ans, err = e.semantic(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	ans.Intent = cls.Intent
	ans.ElapsedMs = time.Since(start).Milliseconds()

	if lerr := e.store.LogQuery(ctx, store.QueryLog{
		Query:      query,
		Intent:     string(cls.Intent),
		Source:     ans.Source,
		Confidence: ans.Confidence,
		ElapsedMS:  ans.ElapsedMs,
	}); lerr != nil {
		slog.Warn("query log write failed", "error", lerr)
	}
	return ans, nil
}

// capabilityAnswer is the canned self-description for "what can you do"
// style queries.
const capabilityAnswer = "I am Aura, your Startup Consultant. I can help you " +
	"find Funding Schemes, analyze Investors, and understand Government Policy. " +
	"Try asking: 'What is the SISFS scheme?'"

// smallTalkFallback is returned when the chat LLM is unreachable.
const smallTalkFallback = "I'm here and ready to help! Ask me anything about " +
	"Indian startups, funding schemes, or government policy."

const chitchatPrompt = `You are Aura, a friendly and professional AI Startup Consultant for India.
The user is engaging in casual conversation. Reply naturally and warmly, stay
in persona, and do not invent startup data. After answering, gently ask if
they need help with Indian startups, funding schemes, or government policy.

User: %q`

func (e *engine) smallTalk(ctx context.Context, query string) *Answer {
	resp, err := e.chatLLM.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a helpful AI assistant named Aura."},
			{Role: "user", Content: fmt.Sprintf(chitchatPrompt, query)},
		},
		Temperature: 0.6,
		MaxTokens:   150,
	})
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		slog.Warn("small talk generation failed", "error", err)
		return &Answer{
			Text:       smallTalkFallback,
			Source:     SourceChatSystem,
			Confidence: 1.0,
			Verified:   true,
		}
	}
	return &Answer{
		Text:       strings.TrimSpace(resp.Content),
		Source:     SourceChatAI,
		Confidence: 1.0,
		Verified:   true,
	}
}

const answerPrompt = `ROLE: You are Aura, an experienced Startup Consultant for the Indian market.

TASK: Answer the user's question using the provided context.

GUIDELINES:
1. Synthesize, do not copy-paste. Explain clearly in your own professional voice.
2. Cite sources as [Source 1], [Source 2] etc. immediately after each fact.
3. Answer in the same language as the question.
4. If the answer is not in the context, politely say you don't have that
   specific information.

CONTEXT:
%s

USER QUESTION: %s

ANSWER:`

// noResultsAnswer covers the case where neither retrieval channel
// produced a single chunk.
const noResultsAnswer = "I couldn't find information about that in the " +
	"policy documents I have. Try asking about the Startup India Seed Fund " +
	"Scheme, DPIIT recognition, or startup funding records."

// degradedAnswer apologizes for a generation failure while still
// surfacing what retrieval found.
const degradedAnswer = "I found relevant policy documents but could not " +
	"generate a full answer right now. Please try again, or check the listed " +
	"sources directly."

func (e *engine) semantic(ctx context.Context, query string) (*Answer, error) {
	results, trace, err := e.retriever.Search(ctx, query, retrieval.SearchOptions{
		MaxResults: e.cfg.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	if len(results) == 0 {
		return &Answer{
			Text:       noResultsAnswer,
			Source:     SourceSemantic,
			Confidence: 0.85,
		}, nil
	}
	slog.Debug("retrieval complete",
		"dense", trace.DenseResults, "sparse", trace.SparseResults,
		"fused", trace.FusedResults, "elapsed_ms", trace.ElapsedMs)

	var contextText strings.Builder
	for i, r := range results {
		fmt.Fprintf(&contextText, "\n[Source %d] %s (Page %d)\n%s\n", i+1, r.Source, r.Page, r.Text)
	}

	resp, err := e.chatLLM.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "You are Aura, a professional AI consultant."},
			{Role: "user", Content: fmt.Sprintf(answerPrompt, contextText.String(), query)},
		},
		Temperature: 0.4,
		MaxTokens:   1500,
	})
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		slog.Warn("answer generation failed", "error", err)
		return &Answer{
			Text:       degradedAnswer,
			Source:     SourceSemantic,
			Confidence: 0.85,
			Sources:    toSources(results, ""),
		}, nil
	}

	answer := strings.TrimSpace(resp.Content)
	report := verify.Verify(answer, results)
	if !report.Verified {
		slog.Debug("verification issues", "summary", report.Summary())
	}

	return &Answer{
		Text:         report.Repaired,
		Source:       SourceSemantic,
		Confidence:   0.85,
		Verified:     report.Verified,
		Sources:      toSources(results, report.Repaired),
		Verification: report,
	}, nil
}

// toSources converts retrieval results to answer sources, attaching an
// answer-overlap snippet when an answer is available.
func toSources(results []store.RetrievalResult, answer string) []Source {
	answerWords := significantWords(answer)
	out := make([]Source, len(results))
	for i, r := range results {
		out[i] = Source{
			ChunkID:    r.ChunkID,
			Filename:   r.Source,
			Page:       r.Page,
			Snippet:    extractSnippet(r.Text, answerWords),
			Text:       r.Text,
			Score:      r.Score,
			TrustScore: r.TrustScore,
		}
	}
	return out
}

// GraphStats reports the loaded knowledge graph statistics.
func (e *engine) GraphStats() graph.Stats {
	return e.graphEng.Stats()
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine.
func (e *engine) Close() error {
	return e.store.Close()
}
