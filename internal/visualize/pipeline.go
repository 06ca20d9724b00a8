// Package visualize pairs a generated scene video with narration.
//
// A run is strictly sequential: video, then narration, then publishing the
// narration clip. A failed video clears the whole state. Narration is
// optional: without it the video still shows, silently.
package visualize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/scripture-companion/internal/domain"
	"github.com/ashureev/scripture-companion/internal/gemini"
	"github.com/ashureev/scripture-companion/internal/media"
)

var (
	// ErrInFlight is returned when a run is refused because another is active or showing.
	ErrInFlight = errors.New("visualization already in progress")
	// ErrDiscarded is returned when the run's result was dropped by a reset or close.
	ErrDiscarded = errors.New("visualization discarded")
)

// VideoMaker produces scene videos.
type VideoMaker interface {
	GenerateSceneVideo(ctx context.Context, prompt string) (*gemini.Video, error)
}

// Speaker synthesizes base64 PCM narration.
type Speaker interface {
	GenerateSpeech(ctx context.Context, text string) (string, error)
}

// ClipStore persists generated clips and hands back playable URLs.
type ClipStore interface {
	SaveVideo(data []byte, mimeType string) (media.Asset, error)
	SaveNarration(payload string) (media.Asset, error)
}

// Progress observes state changes during a run. A zero state with
// IsLoading false means the run was cleared.
type Progress func(domain.VisualizationState)

// Steps are the loading labels shown for each stage.
type Steps struct {
	Video string
	Audio string
}

// Pipeline runs the video → narration chain.
type Pipeline struct {
	video   VideoMaker
	speaker Speaker
	clips   ClipStore
	logger  *slog.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(video VideoMaker, speaker Speaker, clips ClipStore, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{video: video, speaker: speaker, clips: clips, logger: logger}
}

// Run generates a video for prompt, narrates narration and returns the
// finished state. progress may be nil.
func (p *Pipeline) Run(ctx context.Context, steps Steps, prompt, narration string, progress Progress) (domain.VisualizationState, error) {
	emit := func(s domain.VisualizationState) {
		if progress != nil {
			progress(s)
		}
	}
	fail := func(stage string, err error) (domain.VisualizationState, error) {
		p.logger.Error("Visualization failed", "stage", stage, "error", err)
		emit(domain.VisualizationState{})
		return domain.VisualizationState{}, fmt.Errorf("%s: %w", stage, err)
	}

	state := domain.VisualizationState{Text: narration, IsLoading: true, LoadingStep: steps.Video}
	emit(state)

	video, err := p.video.GenerateSceneVideo(ctx, prompt)
	if err != nil {
		return fail("generate video", err)
	}
	if video == nil {
		return fail("generate video", gemini.ErrNoVideo)
	}
	clip, err := p.clips.SaveVideo(video.Data, video.MIMEType)
	if err != nil {
		return fail("store video", err)
	}

	state.VideoURL = clip.URL
	state.LoadingStep = steps.Audio
	emit(state)

	payload, narrationClip, err := p.narrate(ctx, narration)
	if err != nil {
		return fail("generate narration", err)
	}

	state.AudioData = payload
	state.AudioURL = narrationClip.URL
	state.IsLoading = false
	state.LoadingStep = ""
	emit(state)

	p.logger.Info("Visualization ready", "video", clip.ID, "narration", narrationClip.ID)
	return state, nil
}

// narrate returns the narration payload and its clip. Missing or unusable
// audio yields empty values; only cancellation is an error.
func (p *Pipeline) narrate(ctx context.Context, text string) (string, media.Asset, error) {
	payload, err := p.speaker.GenerateSpeech(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", media.Asset{}, ctxErr
		}
		p.logger.Warn("Narration unavailable, showing video without audio", "error", err)
		return "", media.Asset{}, nil
	}
	clip, err := p.clips.SaveNarration(payload)
	if err != nil {
		p.logger.Warn("Narration could not be stored, showing video without audio", "error", err)
		return "", media.Asset{}, nil
	}
	return payload, clip, nil
}
