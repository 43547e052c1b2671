package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nikhilbhutani/voiceassistant/internal/config"
	"github.com/nikhilbhutani/voiceassistant/internal/llm"
)

// LLMHandler exposes the gateway directly so operators can try prompts
// against the same provider, model and system prompt the assistant uses.
type LLMHandler struct {
	gateway llm.Gateway
	cfg     config.LLMConfig
}

func NewLLMHandler(gw llm.Gateway, cfg config.LLMConfig) *LLMHandler {
	return &LLMHandler{gateway: gw, cfg: cfg}
}

type chatRequest struct {
	llm.ChatRequest
	// Send "raw": true to skip the assistant system prompt.
	Raw bool `json:"raw,omitempty"`
}

func (h *LLMHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "messages required"})
		return
	}

	resp, err := h.gateway.Chat(r.Context(), h.withDefaults(req))
	if errors.Is(err, llm.ErrProviderNotConfigured) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *LLMHandler) withDefaults(req chatRequest) llm.ChatRequest {
	out := req.ChatRequest
	if out.Provider == "" {
		out.Provider = h.cfg.Provider
	}
	if out.Model == "" && out.Provider == h.cfg.Provider {
		out.Model = h.cfg.Model
	}
	if out.Temperature == 0 {
		out.Temperature = h.cfg.Temperature
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = h.cfg.MaxTokens
	}
	if !req.Raw && h.cfg.SystemPrompt != "" && out.Messages[0].Role != "system" {
		out.Messages = append([]llm.Message{{Role: "system", Content: h.cfg.SystemPrompt}}, out.Messages...)
	}
	return out
}

func (h *LLMHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":  h.gateway.ListModels(),
		"default": llm.ModelInfo{Provider: h.cfg.Provider, Model: h.cfg.Model},
	})
}
