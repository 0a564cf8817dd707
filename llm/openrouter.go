package llm

import "context"

// openRouterProvider routes chat and embedding calls through
// OpenRouter's OpenAI-compatible endpoints.
type openRouterProvider struct {
	base openAICompatClient
}

// NewOpenRouter creates an OpenRouter-backed provider. An empty BaseURL
// falls back to the hosted service.
func NewOpenRouter(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api"
	}
	return &openRouterProvider{base: newOpenAICompatClient(cfg)}
}

func (p *openRouterProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *openRouterProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}
