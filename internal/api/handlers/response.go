package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nikhilbhutani/voiceassistant/internal/assistant"
	"github.com/nikhilbhutani/voiceassistant/internal/auth"
	"github.com/nikhilbhutani/voiceassistant/internal/feedback"
	"github.com/nikhilbhutani/voiceassistant/internal/nlp/intent"
	"github.com/nikhilbhutani/voiceassistant/internal/training"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, intent.ErrInvalidInput),
		errors.Is(err, feedback.ErrInvalidFeedback),
		errors.Is(err, training.ErrInvalidDataset),
		errors.Is(err, assistant.ErrTextRequired),
		errors.Is(err, assistant.ErrEmptyUpload):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, intent.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, assistant.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, assistant.ErrTranscription):
		return http.StatusBadGateway
	case errors.Is(err, intent.ErrNotTrained),
		errors.Is(err, assistant.ErrAudioUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
