package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/nikhilbhutani/voiceassistant/internal/auth"
	"github.com/nikhilbhutani/voiceassistant/internal/models"
	"github.com/nikhilbhutani/voiceassistant/internal/nlp/intent"
	"github.com/nikhilbhutani/voiceassistant/internal/queue"
)

const maxBatchSize = 1000

// TrainEnqueuer schedules background training; *queue.Client implements it.
type TrainEnqueuer interface {
	EnqueueIntentTrain(ctx context.Context, payload queue.IntentTrainPayload) (string, error)
}

type RunLister interface {
	Recent(ctx context.Context, limit int) ([]models.TrainingRun, error)
}

type IntentHandler struct {
	registry *intent.Registry
	trainer  TrainEnqueuer
	runs     RunLister
}

// NewIntentHandler accepts a nil trainer or run lister; the matching
// endpoints then answer 503.
func NewIntentHandler(registry *intent.Registry, trainer TrainEnqueuer, runs RunLister) *IntentHandler {
	return &IntentHandler{registry: registry, trainer: trainer, runs: runs}
}

type predictRequest struct {
	Text string `json:"text"`
}

func (h *IntentHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text required"})
		return
	}

	p, err := h.registry.PredictProba(req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"intent": p.Label, "confidence": p.Confidence})
}

type batchRequest struct {
	Texts []string `json:"texts"`
}

func (h *IntentHandler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Texts) > maxBatchSize {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "too many texts, max " + strconv.Itoa(maxBatchSize)})
		return
	}

	labels, err := h.registry.PredictBatch(req.Texts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"intents": labels})
}

func (h *IntentHandler) Info(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"model": h.registry.Info(), "path": h.registry.Path()}
	if at, ok := h.registry.LoadedAt(); ok {
		body["loaded_at"] = at
	}
	writeJSON(w, http.StatusOK, body)
}

type trainRequest struct {
	ValidationFraction *float64 `json:"validation_fraction,omitempty"`
}

// Train enqueues a retraining run on the configured dataset. The new model is
// picked up through the reload channel once the worker finishes.
func (h *IntentHandler) Train(w http.ResponseWriter, r *http.Request) {
	if h.trainer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "training queue unavailable"})
		return
	}

	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if f := req.ValidationFraction; f != nil && (*f < 0 || *f >= 1) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation_fraction must be in [0, 1)"})
		return
	}

	id, err := h.trainer.EnqueueIntentTrain(r.Context(), queue.IntentTrainPayload{
		ValidationFraction: req.ValidationFraction,
		RequestedBy:        auth.Subject(r.Context()),
	})
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id, "status": "queued"})
}

func (h *IntentHandler) Runs(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "training history unavailable"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}
