// Package audio converts uploaded recordings into the format the speech
// backends expect.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
)

var ErrNotWAV = errors.New("not a PCM WAV stream")

// Format describes interleaved little-endian PCM samples.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// EncodeWAV wraps raw PCM in a canonical 44-byte RIFF header.
func EncodeWAV(pcm []byte, f Format) []byte {
	blockAlign := f.Channels * f.BitsPerSample / 8
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(f.Channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(f.BitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// DecodeWAVHeader reads the format of a canonical WAV stream.
func DecodeWAVHeader(data []byte) (Format, error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[12:16]) != "fmt " {
		return Format{}, ErrNotWAV
	}
	if binary.LittleEndian.Uint16(data[20:22]) != 1 {
		return Format{}, ErrNotWAV
	}
	return Format{
		Channels:      int(binary.LittleEndian.Uint16(data[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(data[24:28])),
		BitsPerSample: int(binary.LittleEndian.Uint16(data[34:36])),
	}, nil
}
