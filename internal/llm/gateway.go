package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/nikhilbhutani/voiceassistant/internal/config"
	"github.com/nikhilbhutani/voiceassistant/internal/metrics"
)

type gateway struct {
	providers        map[string]Provider
	defaultProvider  string
	fallbackProvider string
	maxRetries       int
	backoff          time.Duration
	logger           *slog.Logger
}

func NewGateway(cfg config.LLMConfig) Gateway {
	providers := make(map[string]Provider)
	if cfg.OpenAIKey != "" {
		providers["openai"] = NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	}
	if cfg.AnthropicKey != "" {
		providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}
	if cfg.OllamaURL != "" {
		providers["ollama"] = NewOllamaProvider(cfg.OllamaURL)
	}
	return newGateway(providers, cfg.Provider, cfg.FallbackProvider, cfg.MaxRetries)
}

func newGateway(providers map[string]Provider, defaultProvider, fallbackProvider string, maxRetries int) *gateway {
	return &gateway{
		providers:        providers,
		defaultProvider:  defaultProvider,
		fallbackProvider: fallbackProvider,
		maxRetries:       max(maxRetries, 0),
		backoff:          500 * time.Millisecond,
		logger:           slog.Default().With("component", "llm-gateway"),
	}
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotConfigured, name)
	}
	return p, nil
}

func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}

	resp, err := g.chatWithRetry(ctx, providerName, req)
	if err != nil && g.fallbackProvider != "" && g.fallbackProvider != providerName && ctx.Err() == nil {
		g.logger.Warn("primary provider failed, trying fallback",
			"primary", providerName,
			"fallback", g.fallbackProvider,
			"error", err,
		)
		// The requested model belongs to the primary provider.
		req.Model = ""
		return g.chatWithRetry(ctx, g.fallbackProvider, req)
	}
	return resp, err
}

func (g *gateway) chatWithRetry(ctx context.Context, providerName string, req ChatRequest) (*ChatResponse, error) {
	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}
	if req.Model == "" {
		if models := p.Models(); len(models) > 0 {
			req.Model = models[0]
		}
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * g.backoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			g.logger.Debug("retrying LLM call", "provider", providerName, "attempt", attempt)
		}

		resp, err := p.ChatCompletion(ctx, req)
		if err == nil {
			metrics.LLMRequests.WithLabelValues(providerName, "ok").Inc()
			metrics.LLMCostUSD.WithLabelValues(providerName).Add(resp.CostUSD)
			return resp, nil
		}
		metrics.LLMRequests.WithLabelValues(providerName, "error").Inc()
		lastErr = err
	}
	return nil, fmt.Errorf("all retries exhausted for %s: %w", providerName, lastErr)
}

func (g *gateway) ListModels() []ModelInfo {
	names := make([]string, 0, len(g.providers))
	for name := range g.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	var models []ModelInfo
	for _, name := range names {
		p := g.providers[name]
		for _, m := range p.Models() {
			models = append(models, ModelInfo{Provider: p.Name(), Model: m})
		}
	}
	return models
}
