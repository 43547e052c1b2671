package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/nikhilbhutani/voiceassistant/internal/feedback"
)

type FeedbackHandler struct {
	svc *feedback.Service
}

func NewFeedbackHandler(svc *feedback.Service) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var in feedback.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	fb, err := h.svc.Submit(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"feedbacks": items, "count": len(items)})
}

func (h *FeedbackHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Export streams every feedback row as CSV.
func (h *FeedbackHandler) Export(w http.ResponseWriter, r *http.Request) {
	name := "feedbacks-" + time.Now().UTC().Format("20060102") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)

	if err := h.svc.ExportCSV(r.Context(), w); err != nil {
		// headers are gone once the first row is written
		writeError(w, err)
	}
}
