package stt

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type LocalSTTConfig struct {
	BaseURL string // default: "http://localhost:8178"
}

// LocalSTT talks to a whisper.cpp server.
// Start the server with: ./server -m models/ggml-base.bin --port 8178
type LocalSTT struct {
	baseURL    string
	httpClient *http.Client
}

func NewLocalSTT(cfg LocalSTTConfig) *LocalSTT {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8178"
	}
	return &LocalSTT{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}
}

func (l *LocalSTT) Name() string { return "local-whisper" }

func (l *LocalSTT) Transcribe(ctx context.Context, req Request) (*Result, error) {
	fields := map[string]string{
		"response_format": "json",
		"temperature":     "0.0",
	}
	return upload(ctx, l.httpClient, l.baseURL+"/inference", "", req, fields)
}
