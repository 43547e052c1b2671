// Package tts synthesizes spoken replies.
package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"

	"github.com/nikhilbhutani/voiceassistant/internal/config"
)

var (
	ErrEmptyText       = errors.New("empty text")
	ErrUnknownProvider = errors.New("unknown tts provider")
)

type Request struct {
	Text     string  `json:"text"`
	Voice    string  `json:"voice,omitempty"`
	Speed    float64 `json:"speed,omitempty"`
	Language string  `json:"language,omitempty"`
}

type Result struct {
	Audio       []byte
	ContentType string // "audio/mpeg" (OpenAI) or "audio/wav" (Piper)
}

// DataURI encodes the audio for inline delivery in a JSON reply.
func (r *Result) DataURI() string {
	return "data:" + r.ContentType + ";base64," + base64.StdEncoding.EncodeToString(r.Audio)
}

type Provider interface {
	Synthesize(ctx context.Context, req Request) (*Result, error)
	Name() string
}

// Registry holds the configured backends by short name ("openai", "local").
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

func NewRegistry(defaultName string) *Registry {
	return &Registry{providers: make(map[string]Provider), defaultName: defaultName}
}

// NewRegistryFromConfig registers every backend that has enough
// configuration to run.
func NewRegistryFromConfig(cfg config.TTSConfig) *Registry {
	r := NewRegistry(cfg.Backend)
	if cfg.OpenAIKey != "" {
		r.Register("openai", NewOpenAITTS(OpenAITTSConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Voice:   cfg.Voice,
		}))
	}
	if cfg.LocalModel != "" {
		r.Register("local", NewLocalTTS(LocalTTSConfig{
			PiperBinPath: cfg.LocalBinPath,
			ModelPath:    cfg.LocalModel,
			SampleRate:   cfg.LocalSampleRate,
		}))
	}
	return r
}

func (r *Registry) Register(name string, p Provider) {
	r.providers[name] = p
}

// Get returns the named provider; an empty name selects the default.
func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
