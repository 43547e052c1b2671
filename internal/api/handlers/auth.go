package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/voiceassistant/internal/auth"
)

type AuthHandler struct {
	issuer *auth.Issuer
	logger *slog.Logger
}

func NewAuthHandler(issuer *auth.Issuer) *AuthHandler {
	return &AuthHandler{issuer: issuer, logger: slog.Default().With("component", "auth")}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.issuer.CheckCredentials(req.Username, req.Password); err != nil {
		h.logger.Warn("login rejected", "username", req.Username)
		writeError(w, err)
		return
	}

	token, err := h.issuer.Issue(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(h.issuer.TTL().Seconds()),
	})
}

func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractBearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization token"})
		return
	}

	claims, err := h.issuer.Verify(token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "sub": claims.Sub})
}
