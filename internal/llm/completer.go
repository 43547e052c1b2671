package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikhilbhutani/voiceassistant/internal/config"
)

// Completer turns a prompt and an optional system instruction into a single
// reply. The provider is fixed when the Completer is built.
type Completer struct {
	gateway     Gateway
	provider    string
	model       string
	temperature float64
	maxTokens   int
}

func NewCompleter(gw Gateway, cfg config.LLMConfig) (*Completer, error) {
	if _, err := gw.Provider(cfg.Provider); err != nil {
		return nil, err
	}
	return &Completer{
		gateway:     gw,
		provider:    cfg.Provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (c *Completer) Provider() string { return c.provider }

func (c *Completer) Complete(ctx context.Context, prompt, system string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("complete: empty prompt")
	}
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: prompt})

	resp, err := c.gateway.Chat(ctx, ChatRequest{
		Provider:    c.provider,
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}
