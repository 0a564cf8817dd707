package llm

import "context"

// xaiProvider speaks the OpenAI-compatible wire format against xAI's
// Grok API.
type xaiProvider struct {
	base openAICompatClient
}

// NewXAI creates a Grok-backed provider. An empty BaseURL falls back to
// the hosted service.
func NewXAI(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.x.ai"
	}
	return &xaiProvider{base: newOpenAICompatClient(cfg)}
}

func (p *xaiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *xaiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}
