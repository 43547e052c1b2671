package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/voiceassistant/internal/command"
	"github.com/nikhilbhutani/voiceassistant/internal/dialogue"
	"github.com/nikhilbhutani/voiceassistant/internal/multimodal/stt"
	"github.com/nikhilbhutani/voiceassistant/internal/multimodal/tts"
	"github.com/nikhilbhutani/voiceassistant/internal/nlp/entity"
)

type fakeOrchestrator struct{}

func (fakeOrchestrator) Process(_ context.Context, input any) (*dialogue.Result, error) {
	if _, ok := input.(string); !ok {
		return &dialogue.Result{Entities: []entity.Entity{}, Response: "Invalid input."}, nil
	}
	label, conf := "check_weather", 0.9
	return &dialogue.Result{
		Intent:     &label,
		Confidence: &conf,
		Entities:   []entity.Entity{},
		Response:   "Checking the weather forecast...",
	}, nil
}

type fakeCompleter struct {
	reply  string
	err    error
	calls  int
	system string
}

func (f *fakeCompleter) Complete(_ context.Context, _, system string) (string, error) {
	f.calls++
	f.system = system
	return f.reply, f.err
}

type fakeTTS struct {
	err error
	req tts.Request
}

func (f *fakeTTS) Name() string { return "fake" }

func (f *fakeTTS) Synthesize(_ context.Context, req tts.Request) (*tts.Result, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &tts.Result{Audio: []byte("RIFF"), ContentType: "audio/wav"}, nil
}

type fakeSTT struct {
	text string
	err  error
	req  stt.Request
}

func (f *fakeSTT) Name() string { return "fake" }

func (f *fakeSTT) Transcribe(_ context.Context, req stt.Request) (*stt.Result, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &stt.Result{Text: f.text, Language: "pt", Duration: 1.5}, nil
}

type fakeTranscoder struct {
	err error
}

func (f fakeTranscoder) ToWAV(_ context.Context, data []byte, _ string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("wav:"), data...), nil
}

func speechWith(p tts.Provider) *tts.Registry {
	r := tts.NewRegistry("fake")
	r.Register("fake", p)
	return r
}

func TestProcessText_TemplateAndSpeech(t *testing.T) {
	voice := &fakeTTS{}
	svc, err := NewService(fakeOrchestrator{}, Config{Language: "pt-BR"}, WithSpeech(speechWith(voice)))
	require.NoError(t, err)

	res, err := svc.ProcessText(context.Background(), Request{Text: "vai chover hoje?"})
	require.NoError(t, err)
	assert.Equal(t, "vai chover hoje?", res.Input)
	require.NotNil(t, res.Intent)
	assert.Equal(t, "check_weather", *res.Intent)
	assert.Equal(t, "Checking the weather forecast...", res.Response)
	assert.Equal(t, "data:audio/wav;base64,UklGRg==", res.Audio)
	assert.Equal(t, "fake", res.TTSProvider)
	assert.Equal(t, "pt", voice.req.Language)
	assert.False(t, res.LLM)
}

func TestProcessText_RequiresText(t *testing.T) {
	svc, err := NewService(fakeOrchestrator{}, Config{})
	require.NoError(t, err)

	for _, text := range []any{nil, "", "   "} {
		_, err := svc.ProcessText(context.Background(), Request{Text: text})
		assert.ErrorIs(t, err, ErrTextRequired)
	}
}

func TestProcessText_NonStringInput(t *testing.T) {
	llm := &fakeCompleter{reply: "should not be used"}
	svc, err := NewService(fakeOrchestrator{}, Config{}, WithLLM(llm), WithCommands(command.NewExecutor(nil)))
	require.NoError(t, err)

	res, err := svc.ProcessText(context.Background(), Request{Text: 42.0})
	require.NoError(t, err)
	assert.Nil(t, res.Intent)
	assert.Equal(t, "Invalid input.", res.Response)
	assert.Zero(t, llm.calls)
}

func TestProcessText_LLMReply(t *testing.T) {
	llm := &fakeCompleter{reply: "Hoje faz sol."}
	svc, err := NewService(fakeOrchestrator{}, Config{SystemPrompt: "Be brief."}, WithLLM(llm))
	require.NoError(t, err)

	res, err := svc.ProcessText(context.Background(), Request{Text: "vai chover?", Lang: "pt"})
	require.NoError(t, err)
	assert.Equal(t, "Hoje faz sol.", res.Response)
	assert.True(t, res.LLM)
	assert.Equal(t, "Be brief. Reply in language: pt.", llm.system)

	off := false
	res, err = svc.ProcessText(context.Background(), Request{Text: "vai chover?", UseLLM: &off})
	require.NoError(t, err)
	assert.Equal(t, "Checking the weather forecast...", res.Response)
	assert.Equal(t, 1, llm.calls)
}

func TestProcessText_LLMFailureKeepsTemplate(t *testing.T) {
	llm := &fakeCompleter{err: errors.New("upstream timeout")}
	svc, err := NewService(fakeOrchestrator{}, Config{}, WithLLM(llm))
	require.NoError(t, err)

	res, err := svc.ProcessText(context.Background(), Request{Text: "vai chover?"})
	require.NoError(t, err)
	assert.Equal(t, "Checking the weather forecast...", res.Response)
	assert.False(t, res.LLM)
}

func TestProcessText_CommandActions(t *testing.T) {
	svc, err := NewService(fakeOrchestrator{}, Config{}, WithCommands(command.NewExecutor(nil)))
	require.NoError(t, err)

	res, err := svc.ProcessText(context.Background(), Request{Text: "toca musica do Leonardo"})
	require.NoError(t, err)
	assert.Contains(t, res.Response, "Leonardo")
	assert.Equal(t, "https://www.youtube.com/results?search_query=Leonardo", res.Actions["youtube"])

	res, err = svc.ProcessText(context.Background(), Request{Text: "qwertyuiop"})
	require.NoError(t, err)
	assert.Equal(t, "Checking the weather forecast...", res.Response)
	assert.Empty(t, res.Actions)
}

func TestProcessText_TTSFailureLeavesAudioEmpty(t *testing.T) {
	svc, err := NewService(fakeOrchestrator{}, Config{}, WithSpeech(speechWith(&fakeTTS{err: errors.New("piper crashed")})))
	require.NoError(t, err)

	res, err := svc.ProcessText(context.Background(), Request{Text: "vai chover?"})
	require.NoError(t, err)
	assert.Empty(t, res.Audio)
	assert.Equal(t, "fake", res.TTSProvider)

	res, err = svc.ProcessText(context.Background(), Request{Text: "vai chover?", TTSProvider: "missing"})
	require.NoError(t, err)
	assert.Empty(t, res.Audio)
	assert.Equal(t, "Checking the weather forecast...", res.Response)
}

func TestProcessAudio(t *testing.T) {
	rec := &fakeSTT{text: "vai chover amanhã?"}
	svc, err := NewService(fakeOrchestrator{}, Config{Language: "pt"}, WithAudioInput(rec, fakeTranscoder{}))
	require.NoError(t, err)

	res, err := svc.ProcessAudio(context.Background(), AudioRequest{Filename: "clip.webm", Data: []byte("opus")})
	require.NoError(t, err)
	assert.Equal(t, "vai chover amanhã?", res.Transcription)
	assert.Equal(t, "vai chover amanhã?", res.Input)
	assert.Equal(t, "Checking the weather forecast...", res.Response.Response)
	assert.Equal(t, []byte("wav:opus"), rec.req.Audio)
	assert.Equal(t, "pt", rec.req.Language)
}

func TestProcessAudio_Errors(t *testing.T) {
	small := Config{MaxUploadBytes: 4}

	svc, err := NewService(fakeOrchestrator{}, small, WithAudioInput(&fakeSTT{text: "oi"}, fakeTranscoder{}))
	require.NoError(t, err)
	_, err = svc.ProcessAudio(context.Background(), AudioRequest{Data: []byte(strings.Repeat("x", 5))})
	assert.ErrorIs(t, err, ErrUploadTooLarge)
	_, err = svc.ProcessAudio(context.Background(), AudioRequest{})
	assert.ErrorIs(t, err, ErrEmptyUpload)

	noAudio, err := NewService(fakeOrchestrator{}, small)
	require.NoError(t, err)
	_, err = noAudio.ProcessAudio(context.Background(), AudioRequest{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrAudioUnavailable)

	badFFmpeg, err := NewService(fakeOrchestrator{}, small, WithAudioInput(&fakeSTT{}, fakeTranscoder{err: errors.New("exit 1")}))
	require.NoError(t, err)
	_, err = badFFmpeg.ProcessAudio(context.Background(), AudioRequest{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrConversion)

	badSTT, err := NewService(fakeOrchestrator{}, small, WithAudioInput(&fakeSTT{err: errors.New("503")}, fakeTranscoder{}))
	require.NoError(t, err)
	_, err = badSTT.ProcessAudio(context.Background(), AudioRequest{Data: []byte("x")})
	assert.ErrorIs(t, err, ErrTranscription)
}

func TestProcessAudio_EmptyTranscript(t *testing.T) {
	svc, err := NewService(fakeOrchestrator{}, Config{}, WithAudioInput(&fakeSTT{text: "  "}, fakeTranscoder{}))
	require.NoError(t, err)

	res, err := svc.ProcessAudio(context.Background(), AudioRequest{Data: []byte("x")})
	require.NoError(t, err)
	assert.Nil(t, res.Intent)
	assert.Empty(t, res.Response.Response)
	assert.NotNil(t, res.Entities)
}
