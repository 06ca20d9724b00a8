// Package audio decodes synthesized narration and wraps it for playback.
package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Narration format produced by the speech model.
const (
	SampleRate  = 24000
	NumChannels = 1
	BitDepth    = 16

	wavFormatPCM = 1
)

// ErrEmptyPayload is returned for payloads that decode to no samples.
var ErrEmptyPayload = errors.New("audio payload is empty")

// DecodeBase64PCM turns a base64 payload of little-endian 16-bit samples into
// integer samples. A trailing odd byte is ignored.
func DecodeBase64PCM(payload string) ([]int, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	frames := len(raw) / 2
	if frames == 0 {
		return nil, ErrEmptyPayload
	}

	samples := make([]int, frames)
	for i := 0; i < frames; i++ {
		samples[i] = int(int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8))
	}
	return samples, nil
}

// Duration returns the playback length of n mono samples.
func Duration(n int) time.Duration {
	return time.Duration(n) * time.Second / SampleRate
}

// WriteWAV encodes mono 24 kHz samples as a PCM WAV stream.
func WriteWAV(w io.WriteSeeker, samples []int) error {
	enc := wav.NewEncoder(w, SampleRate, BitDepth, NumChannels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: NumChannels, SampleRate: SampleRate},
		Data:           samples,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
