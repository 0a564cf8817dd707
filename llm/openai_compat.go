package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// openAICompatClient is the shared base for all OpenAI-compatible providers.
// It speaks the /v1/chat/completions and /v1/embeddings wire format and
// handles retries with backoff.
type openAICompatClient struct {
	cfg    Config
	client *http.Client
}

func newOpenAICompatClient(cfg Config) openAICompatClient {
	// Generous per-request timeout: a cold local model (Ollama) can take
	// a while on first load, but a stalled connection should not hang
	// the caller for minutes on end.
	return openAICompatClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// NewOpenAICompat creates a generic OpenAI-compatible provider for any
// endpoint not covered by a named constructor.
func NewOpenAICompat(cfg Config) Provider {
	return &openAICompatProvider{base: newOpenAICompatClient(cfg)}
}

type openAICompatProvider struct {
	base openAICompatClient
}

func (p *openAICompatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *openAICompatProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}

// Wire types for the OpenAI-compatible JSON protocol.

type wireChatRequest struct {
	Model          string          `json:"model"`
	Messages       json.RawMessage `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *wireFormat     `json:"response_format,omitempty"`
}

type wireFormat struct {
	Type string `json:"type"`
}

type wireChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type wireEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type wireEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *openAICompatClient) chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	msgs, err := json.Marshal(req.Messages)
	if err != nil {
		return nil, err
	}

	wire := wireChatRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if wire.Model == "" {
		wire.Model = c.cfg.Model
	}
	if req.ResponseFormat == "json_object" {
		wire.ResponseFormat = &wireFormat{Type: "json_object"}
	}

	raw, err := c.post(ctx, "/v1/chat/completions", wire)
	if err != nil {
		return nil, err
	}

	var resp wireChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	return &ChatResponse{
		Content:          choice.Message.Content,
		Model:            resp.Model,
		FinishReason:     choice.FinishReason,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func (c *openAICompatClient) embed(ctx context.Context, texts []string) ([][]float32, error) {
	raw, err := c.post(ctx, "/v1/embeddings", wireEmbedRequest{
		Model: c.cfg.Model,
		Input: texts,
	})
	if err != nil {
		return nil, err
	}

	var resp wireEmbedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}

	// The API may return vectors out of order; place each by index.
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	return out, nil
}

const (
	maxRetries     = 6
	baseRetryDelay = 2 * time.Second
	// rate-limit responses get a longer floor than plain server errors
	rateLimitFloor = 5 * time.Second
)

func retryableStatusCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryDelay picks the wait before attempt n (1-based). A 429 doubles
// from the rate-limit floor and honors a larger Retry-After header;
// everything else backs off exponentially from baseRetryDelay.
func retryDelay(attempt, status int, retryAfter string) time.Duration {
	if status == http.StatusTooManyRequests {
		d := rateLimitFloor * time.Duration(1<<(attempt-1))
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			if hd := time.Duration(secs) * time.Second; hd > d {
				d = hd
			}
		}
		return d
	}
	return baseRetryDelay * time.Duration(1<<(attempt-1))
}

// post sends one JSON request and retries transient failures. Non-retryable
// HTTP errors (4xx other than 429, plain 500) surface immediately.
func (c *openAICompatClient) post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := c.cfg.BaseURL + path

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		status, retryAfter, raw, err := c.roundTrip(ctx, url, payload)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request to %s: %w", url, err)
		case status == http.StatusOK:
			return raw, nil
		default:
			lastErr = fmt.Errorf("LLM API error %d: %s", status, raw)
			if !retryableStatusCode(status) {
				return nil, lastErr
			}
		}

		if attempt == maxRetries {
			break
		}
		delay := retryDelay(attempt+1, status, retryAfter)
		slog.Warn("llm: retrying request",
			"url", url, "attempt", attempt+1, "delay", delay, "error", lastErr)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// roundTrip performs a single POST and returns the status, the
// Retry-After header value, the body, and any transport error.
func (c *openAICompatClient) roundTrip(ctx context.Context, url string, payload []byte) (int, string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", nil, fmt.Errorf("reading response body: %w", err)
	}
	return resp.StatusCode, resp.Header.Get("Retry-After"), raw, nil
}
