// Package stt transcribes recorded speech.
package stt

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilbhutani/voiceassistant/internal/config"
)

var ErrEmptyAudio = errors.New("empty audio")

type Request struct {
	Audio    []byte `json:"-"`
	Filename string `json:"filename"`
	Language string `json:"language,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

type Result struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

type Provider interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
	Name() string
}

// New selects the backend named by cfg.Backend.
func New(cfg config.STTConfig) (Provider, error) {
	switch cfg.Backend {
	case "openai", "":
		if cfg.OpenAIKey == "" && cfg.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("stt backend openai requires OPENAI_API_KEY")
		}
		return NewOpenAISTT(OpenAISTTConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}), nil
	case "local":
		return NewLocalSTT(LocalSTTConfig{BaseURL: cfg.LocalBaseURL}), nil
	default:
		return nil, fmt.Errorf("unknown stt backend %q", cfg.Backend)
	}
}
