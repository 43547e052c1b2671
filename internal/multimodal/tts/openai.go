package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OpenAITTSConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "tts-1"
	Voice   string // default: "alloy"
}

// OpenAITTS synthesizes speech using OpenAI's TTS API.
type OpenAITTS struct {
	cfg        OpenAITTSConfig
	httpClient *http.Client
}

func NewOpenAITTS(cfg OpenAITTSConfig) *OpenAITTS {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	return &OpenAITTS{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (o *OpenAITTS) Name() string { return "openai-tts" }

// Synthesize returns MP3 audio. The model picks the language from the text.
func (o *OpenAITTS) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	voice := req.Voice
	if voice == "" {
		voice = o.cfg.Voice
	}

	body := map[string]any{
		"model":           o.cfg.Model,
		"input":           req.Text,
		"voice":           voice,
		"response_format": "mp3",
	}
	if req.Speed > 0 {
		body["speed"] = req.Speed
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(o.cfg.BaseURL, "/")+"/audio/speech", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tts failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return &Result{Audio: audio, ContentType: "audio/mpeg"}, nil
}
