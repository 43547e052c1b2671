// Package assistant runs a full voice-assistant turn: understand the
// utterance, optionally ask the LLM, attach command actions and speak the
// reply.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nikhilbhutani/voiceassistant/internal/command"
	"github.com/nikhilbhutani/voiceassistant/internal/dialogue"
	"github.com/nikhilbhutani/voiceassistant/internal/metrics"
	"github.com/nikhilbhutani/voiceassistant/internal/multimodal/audio"
	"github.com/nikhilbhutani/voiceassistant/internal/multimodal/stt"
	"github.com/nikhilbhutani/voiceassistant/internal/multimodal/tts"
	"github.com/nikhilbhutani/voiceassistant/internal/nlp/entity"
)

const DefaultMaxUploadBytes = 10 << 20

var (
	ErrTextRequired     = errors.New("text is required")
	ErrUploadTooLarge   = errors.New("file too large")
	ErrEmptyUpload      = errors.New("empty upload")
	ErrAudioUnavailable = errors.New("audio input is not configured")
	ErrConversion       = errors.New("audio conversion failed")
	ErrTranscription    = errors.New("transcription failed")
)

type Orchestrator interface {
	Process(ctx context.Context, input any) (*dialogue.Result, error)
}

type Completer interface {
	Complete(ctx context.Context, prompt, system string) (string, error)
}

type Commands interface {
	Execute(text string) command.Result
}

type Synthesizers interface {
	Get(name string) (tts.Provider, error)
}

type Config struct {
	Language       string
	SystemPrompt   string
	MaxUploadBytes int64
}

// Request is one text turn. Text is untyped because clients may send any
// JSON value; non-strings get the invalid-input reply. A nil UseLLM means
// "use the LLM when one is configured".
type Request struct {
	Text        any    `json:"text"`
	Lang        string `json:"lang,omitempty"`
	TTSProvider string `json:"tts_provider,omitempty"`
	UseLLM      *bool  `json:"use_llm,omitempty"`
}

type AudioRequest struct {
	Filename    string
	Data        []byte
	Lang        string
	TTSProvider string
	UseLLM      *bool
}

type Response struct {
	Input       string            `json:"input"`
	Intent      *string           `json:"intent"`
	Confidence  *float64          `json:"confidence,omitempty"`
	Entities    []entity.Entity   `json:"entities"`
	Response    string            `json:"response"`
	Actions     map[string]string `json:"actions"`
	Audio       string            `json:"audio"`
	TTSProvider string            `json:"tts_provider"`
	LLM         bool              `json:"llm"`
}

type AudioResponse struct {
	Response
	Transcription string  `json:"transcription"`
	Language      string  `json:"language,omitempty"`
	Duration      float64 `json:"duration,omitempty"`
}

type Service struct {
	orchestrator Orchestrator
	llm          Completer
	commands     Commands
	speech       Synthesizers
	transcriber  stt.Provider
	transcoder   audio.Transcoder
	cfg          Config
	logger       *slog.Logger
}

type Option func(*Service)

// WithLLM enables free-form replies. The orchestrator reply is kept when
// the completion fails.
func WithLLM(c Completer) Option { return func(s *Service) { s.llm = c } }

func WithCommands(c Commands) Option { return func(s *Service) { s.commands = c } }

func WithSpeech(sy Synthesizers) Option { return func(s *Service) { s.speech = sy } }

func WithAudioInput(p stt.Provider, t audio.Transcoder) Option {
	return func(s *Service) {
		s.transcriber = p
		s.transcoder = t
	}
}

func NewService(orch Orchestrator, cfg Config, opts ...Option) (*Service, error) {
	if orch == nil {
		return nil, errors.New("assistant: orchestrator is required")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Language == "" {
		cfg.Language = "pt"
	}
	s := &Service{
		orchestrator: orch,
		cfg:          cfg,
		logger:       slog.Default().With("component", "assistant"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) MaxUploadBytes() int64 { return s.cfg.MaxUploadBytes }

func (s *Service) ProcessText(ctx context.Context, req Request) (*Response, error) {
	if req.Text == nil {
		return nil, ErrTextRequired
	}
	if str, ok := req.Text.(string); ok && strings.TrimSpace(str) == "" {
		return nil, ErrTextRequired
	}
	metrics.AssistantRequests.WithLabelValues("text").Inc()
	return s.process(ctx, req)
}

func (s *Service) process(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	lang := req.Lang
	if lang == "" {
		lang = s.cfg.Language
	}

	res, err := s.orchestrator.Process(ctx, req.Text)
	if err != nil {
		return nil, err
	}
	out := &Response{
		Intent:     res.Intent,
		Confidence: res.Confidence,
		Entities:   res.Entities,
		Response:   res.Response,
		Actions:    map[string]string{},
	}

	text, ok := req.Text.(string)
	if !ok {
		return out, nil
	}
	out.Input = text

	if s.commands != nil {
		cmd := s.commands.Execute(text)
		for k, v := range cmd.Actions {
			out.Actions[k] = v
		}
		if cmd.Matched {
			out.Response = cmd.Response
		}
	}

	if s.llm != nil && (req.UseLLM == nil || *req.UseLLM) {
		reply, err := s.llm.Complete(ctx, text, s.systemPrompt(lang))
		if err != nil {
			metrics.ProviderFailures.WithLabelValues("llm").Inc()
			s.logger.Warn("llm reply failed, keeping templated response", "error", err)
		} else if reply != "" {
			out.Response = reply
			out.LLM = true
		}
	}

	out.Audio, out.TTSProvider = s.speak(ctx, out.Response, lang, req.TTSProvider)

	s.logger.Info("assistant turn",
		"intent", deref(out.Intent),
		"llm", out.LLM,
		"actions", len(out.Actions),
		"audio", out.Audio != "",
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// ProcessAudio transcribes an uploaded recording and answers the transcript.
func (s *Service) ProcessAudio(ctx context.Context, req AudioRequest) (*AudioResponse, error) {
	if int64(len(req.Data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrUploadTooLarge, len(req.Data), s.cfg.MaxUploadBytes)
	}
	if len(req.Data) == 0 {
		return nil, ErrEmptyUpload
	}
	if s.transcriber == nil || s.transcoder == nil {
		return nil, ErrAudioUnavailable
	}
	metrics.AssistantRequests.WithLabelValues("audio").Inc()

	lang := req.Lang
	if lang == "" {
		lang = s.cfg.Language
	}

	wav, err := s.transcoder.ToWAV(ctx, req.Data, req.Filename)
	if err != nil {
		s.logger.Error("audio conversion failed", "filename", req.Filename, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}

	tr, err := s.transcriber.Transcribe(ctx, stt.Request{Audio: wav, Filename: "audio.wav", Language: shortLang(lang)})
	if err != nil {
		s.logger.Error("transcription failed", "provider", s.transcriber.Name(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	out := &AudioResponse{Transcription: tr.Text, Language: tr.Language, Duration: tr.Duration}
	if strings.TrimSpace(tr.Text) == "" {
		out.Response = Response{Entities: []entity.Entity{}, Actions: map[string]string{}}
		return out, nil
	}

	res, err := s.process(ctx, Request{Text: tr.Text, Lang: lang, TTSProvider: req.TTSProvider, UseLLM: req.UseLLM})
	if err != nil {
		return nil, err
	}
	out.Response = *res
	return out, nil
}

// speak returns an empty data URI when synthesis is unavailable or fails.
func (s *Service) speak(ctx context.Context, text, lang, provider string) (string, string) {
	if s.speech == nil || text == "" {
		return "", ""
	}
	p, err := s.speech.Get(provider)
	if err != nil {
		s.logger.Warn("tts provider unavailable", "provider", provider, "error", err)
		return "", provider
	}
	res, err := p.Synthesize(ctx, tts.Request{Text: text, Language: shortLang(lang)})
	if err != nil {
		metrics.ProviderFailures.WithLabelValues("tts").Inc()
		s.logger.Error("tts generation failed", "provider", p.Name(), "error", err)
		return "", p.Name()
	}
	return res.DataURI(), p.Name()
}

func (s *Service) systemPrompt(lang string) string {
	if lang == "" {
		return s.cfg.SystemPrompt
	}
	return strings.TrimSpace(s.cfg.SystemPrompt + " Reply in language: " + lang + ".")
}

func shortLang(lang string) string {
	if len(lang) > 2 {
		return strings.ToLower(lang[:2])
	}
	return strings.ToLower(lang)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
