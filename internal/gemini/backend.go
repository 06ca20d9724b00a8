// Package gemini talks to the generative content API: reflective text,
// narration audio, scene video and quiz generation.
package gemini

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned when no API credential is available.
	ErrNotConfigured = errors.New("generative API key not configured")
	// ErrNoAudio is returned when a speech response carries no inline audio.
	ErrNoAudio = errors.New("speech response contained no audio")
	// ErrNoVideo is returned when a finished video job produced nothing.
	ErrNoVideo = errors.New("video job produced no video")
)

// TextRequest is a single text completion request.
type TextRequest struct {
	Prompt            string
	SystemInstruction string
	Temperature       *float32
	JSON              bool
}

// VideoJob tracks a long-running video generation operation.
type VideoJob struct {
	Name    string
	Done    bool
	Failure string

	// handle is the backend's own operation value.
	handle any
}

// Video is a downloaded, playable clip.
type Video struct {
	Data     []byte
	MIMEType string
	URI      string
}

// Backend is the raw model surface the Service drives.
type Backend interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	// SynthesizeSpeech returns 16-bit mono PCM at 24 kHz.
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
	StartVideo(ctx context.Context, prompt string) (*VideoJob, error)
	PollVideo(ctx context.Context, job *VideoJob) (*VideoJob, error)
	DownloadVideo(ctx context.Context, job *VideoJob) (*Video, error)
}
