package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_ChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaChatReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		assert.Len(t, req.Messages, 1)
		if assert.NotNil(t, req.Options) {
			assert.Equal(t, 32, req.Options.NumPredict)
		}

		_ = json.NewEncoder(w).Encode(ollamaChatResp{
			Model:           "llama3",
			Message:         ollamaMessage{Role: "assistant", Content: "Olá!"},
			Done:            true,
			PromptEvalCount: 7,
			EvalCount:       3,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL + "/")
	resp, err := p.ChatCompletion(context.Background(), ChatRequest{
		Model:     "llama3",
		Messages:  []Message{{Role: "user", Content: "oi"}},
		MaxTokens: 32,
	})
	require.NoError(t, err)
	assert.Equal(t, "Olá!", resp.Content)
	assert.Equal(t, 7, resp.InputTokens)
	assert.Equal(t, 3, resp.OutputTokens)
	assert.Zero(t, resp.CostUSD)
}

func TestOllamaProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL).ChatCompletion(context.Background(), ChatRequest{Model: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
