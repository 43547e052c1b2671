package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

var ErrEmptyInput = errors.New("empty audio input")

// Transcoder converts an arbitrary recording to mono 16-bit WAV.
type Transcoder interface {
	ToWAV(ctx context.Context, data []byte, filename string) ([]byte, error)
}

// FFmpeg shells out to the ffmpeg binary. The input is staged in a temp
// file because containers such as mp4 need a seekable source.
type FFmpeg struct {
	bin        string
	sampleRate int
}

func NewFFmpeg(bin string, sampleRate int) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &FFmpeg{bin: bin, sampleRate: sampleRate}
}

func (f *FFmpeg) ToWAV(ctx context.Context, data []byte, filename string) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	in, err := os.CreateTemp("", "upload-*"+filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("stage audio: %w", err)
	}
	defer os.Remove(in.Name())
	if _, err := in.Write(data); err != nil {
		in.Close()
		return nil, fmt.Errorf("stage audio: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("stage audio: %w", err)
	}

	cmd := exec.CommandContext(ctx, f.bin,
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-i", in.Name(),
		"-ac", "1",
		"-ar", strconv.Itoa(f.sampleRate),
		"-sample_fmt", "s16",
		"-f", "wav", "pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
