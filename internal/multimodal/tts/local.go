package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/nikhilbhutani/voiceassistant/internal/multimodal/audio"
)

type LocalTTSConfig struct {
	PiperBinPath string // default: "piper"
	ModelPath    string // required: path to the .onnx voice model
	SampleRate   int    // must match the voice model, default 22050
}

// LocalTTS runs the Piper binary. Voice and language come from the model
// file; Speed maps to Piper's length scale.
type LocalTTS struct {
	cfg LocalTTSConfig
}

func NewLocalTTS(cfg LocalTTSConfig) *LocalTTS {
	if cfg.PiperBinPath == "" {
		cfg.PiperBinPath = "piper"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 22050
	}
	return &LocalTTS{cfg: cfg}
}

func (l *LocalTTS) Name() string { return "local-piper" }

func (l *LocalTTS) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	if l.cfg.ModelPath == "" {
		return nil, fmt.Errorf("piper model path is required (set TTS_LOCAL_PIPER_MODEL)")
	}

	args := []string{"--model", l.cfg.ModelPath, "--output-raw"}
	if req.Speed > 0 {
		args = append(args, "--length_scale", strconv.FormatFloat(1/req.Speed, 'f', 3, 64))
	}
	cmd := exec.CommandContext(ctx, l.cfg.PiperBinPath, args...)
	cmd.Stdin = strings.NewReader(req.Text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("piper failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	wav := audio.EncodeWAV(stdout.Bytes(), audio.Format{SampleRate: l.cfg.SampleRate, Channels: 1, BitsPerSample: 16})
	return &Result{Audio: wav, ContentType: "audio/wav"}, nil
}
