package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// OpenAISTTConfig holds configuration for the OpenAI STT backend.
type OpenAISTTConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "whisper-1"
}

// OpenAISTT transcribes audio using OpenAI's Whisper API (or a compatible endpoint).
type OpenAISTT struct {
	cfg        OpenAISTTConfig
	httpClient *http.Client
}

func NewOpenAISTT(cfg OpenAISTTConfig) *OpenAISTT {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	return &OpenAISTT{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *OpenAISTT) Name() string { return "openai-whisper" }

func (o *OpenAISTT) Transcribe(ctx context.Context, req Request) (*Result, error) {
	fields := map[string]string{
		"model":           o.cfg.Model,
		"response_format": "verbose_json",
	}
	if req.Prompt != "" {
		fields["prompt"] = req.Prompt
	}
	return upload(ctx, o.httpClient, strings.TrimRight(o.cfg.BaseURL, "/")+"/audio/transcriptions", o.cfg.APIKey, req, fields)
}

// upload posts the audio as a multipart form and decodes a Whisper-style
// JSON reply.
func upload(ctx context.Context, client *http.Client, url, apiKey string, req Request, fields map[string]string) (*Result, error) {
	if len(req.Audio) == 0 {
		return nil, ErrEmptyAudio
	}
	filename := req.Filename
	if filename == "" {
		filename = "audio.wav"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if req.Language != "" {
		_ = mw.WriteField("language", req.Language)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out Result
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	out.Text = strings.TrimSpace(out.Text)
	if out.Language == "" {
		out.Language = req.Language
	}
	return &out, nil
}
