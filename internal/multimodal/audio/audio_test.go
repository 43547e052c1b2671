package audio

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAV(t *testing.T) {
	pcm := make([]byte, 3200)
	wav := EncodeWAV(pcm, Format{SampleRate: 22050, Channels: 1, BitsPerSample: 16})
	require.Len(t, wav, 44+len(pcm))

	f, err := DecodeWAVHeader(wav)
	require.NoError(t, err)
	assert.Equal(t, Format{SampleRate: 22050, Channels: 1, BitsPerSample: 16}, f)

	_, err = DecodeWAVHeader([]byte("ID3 not a wav file at all, just some mp3 bytes"))
	assert.ErrorIs(t, err, ErrNotWAV)
}

func TestFFmpeg_ToWAV(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	src := EncodeWAV(make([]byte, 44100*2), Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16})

	out, err := NewFFmpeg("", 16000).ToWAV(context.Background(), src, "clip.wav")
	require.NoError(t, err)
	f, err := DecodeWAVHeader(out)
	require.NoError(t, err)
	assert.Equal(t, 16000, f.SampleRate)
	assert.Equal(t, 1, f.Channels)
}

func TestFFmpeg_Errors(t *testing.T) {
	ff := NewFFmpeg("definitely-not-ffmpeg", 16000)
	_, err := ff.ToWAV(context.Background(), nil, "a.wav")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = ff.ToWAV(context.Background(), []byte{1, 2, 3}, "a.wav")
	assert.Error(t, err)
}
