package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/nikhilbhutani/voiceassistant/internal/assistant"
)

// multipart overhead allowed on top of the audio size limit
const formOverhead = 1 << 20

type AssistantHandler struct {
	svc *assistant.Service
}

func NewAssistantHandler(svc *assistant.Service) *AssistantHandler {
	return &AssistantHandler{svc: svc}
}

// Process accepts a JSON body or a form with the fields text, lang,
// tts_provider and use_llm.
func (h *AssistantHandler) Process(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAssistantRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	res, err := h.svc.ProcessText(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeAssistantRequest(r *http.Request) (assistant.Request, error) {
	var req assistant.Request
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data", "application/x-www-form-urlencoded":
		if err := r.ParseMultipartForm(32 << 10); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return req, errors.New("invalid form body")
		}
		if r.Form.Has("text") {
			req.Text = r.FormValue("text")
		}
		req.Lang = r.FormValue("lang")
		req.TTSProvider = r.FormValue("tts_provider")
		if v := r.FormValue("use_llm"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return req, errors.New("use_llm must be a boolean")
			}
			req.UseLLM = &b
		}
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, errors.New("invalid request body")
		}
	}
	return req, nil
}

// Upload takes a multipart recording in the "file" field, transcribes it and
// answers the transcript.
func (h *AssistantHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.svc.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, assistant.ErrUploadTooLarge)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file field required"})
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && !isMediaType(ct) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "upload must be an audio file"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read upload"})
		return
	}

	req := assistant.AudioRequest{
		Filename:    header.Filename,
		Data:        data,
		Lang:        r.FormValue("lang"),
		TTSProvider: r.FormValue("tts_provider"),
	}
	if v := r.FormValue("use_llm"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "use_llm must be a boolean"})
			return
		}
		req.UseLLM = &b
	}

	res, err := h.svc.ProcessAudio(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func isMediaType(ct string) bool {
	return strings.HasPrefix(ct, "audio/") || strings.HasPrefix(ct, "video/") || ct == "application/octet-stream"
}
