package stt

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/voiceassistant/internal/config"
)

func TestOpenAISTT_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "pt", r.FormValue("language"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "clip.wav", hdr.Filename)
		assert.Equal(t, []byte("RIFF"), data)

		_, _ = w.Write([]byte(`{"text":" Olá, tudo bem? ","language":"portuguese","duration":1.5}`))
	}))
	defer srv.Close()

	p := NewOpenAISTT(OpenAISTTConfig{APIKey: "sk-test", BaseURL: srv.URL})
	res, err := p.Transcribe(context.Background(), Request{Audio: []byte("RIFF"), Filename: "clip.wav", Language: "pt"})
	require.NoError(t, err)
	assert.Equal(t, "Olá, tudo bem?", res.Text)
	assert.Equal(t, "portuguese", res.Language)
	assert.Equal(t, 1.5, res.Duration)
}

func TestLocalSTT_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/inference", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"text":"toca uma musica"}`))
	}))
	defer srv.Close()

	res, err := NewLocalSTT(LocalSTTConfig{BaseURL: srv.URL}).Transcribe(context.Background(), Request{Audio: []byte{1, 2}, Language: "pt"})
	require.NoError(t, err)
	assert.Equal(t, "toca uma musica", res.Text)
	assert.Equal(t, "pt", res.Language)
}

func TestTranscribe_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewLocalSTT(LocalSTTConfig{BaseURL: srv.URL})
	_, err := p.Transcribe(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyAudio)

	_, err = p.Transcribe(context.Background(), Request{Audio: []byte{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestNew(t *testing.T) {
	p, err := New(config.STTConfig{Backend: "local"})
	require.NoError(t, err)
	assert.Equal(t, "local-whisper", p.Name())

	_, err = New(config.STTConfig{Backend: "openai"})
	assert.Error(t, err)

	p, err = New(config.STTConfig{Backend: "openai", OpenAIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "openai-whisper", p.Name())

	_, err = New(config.STTConfig{Backend: "vosk"})
	assert.Error(t, err)
}
