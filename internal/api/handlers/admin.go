package handlers

import (
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/voiceassistant/internal/nlp/intent"
)

type AdminHandler struct {
	registry *intent.Registry
	logger   *slog.Logger
}

func NewAdminHandler(registry *intent.Registry) *AdminHandler {
	return &AdminHandler{registry: registry, logger: slog.Default().With("component", "admin")}
}

// ReloadModel re-reads the model file. On failure the previous model keeps
// serving.
func (h *AdminHandler) ReloadModel(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Reload(); err != nil {
		writeError(w, err)
		return
	}

	info := h.registry.Info()
	h.logger.Info("model reloaded via admin endpoint", "classes", len(info.Classes))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"message":    "model reloaded",
		"classes":    info.Classes,
		"trained_at": info.Metadata.TrainedAt,
	})
}
