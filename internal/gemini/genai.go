package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/scripture-companion/internal/config"
	"google.golang.org/genai"
)

const (
	videoResolution  = "720p"
	videoAspectRatio = "16:9"
)

// GenAIBackend implements Backend on top of the Gemini API SDK.
type GenAIBackend struct {
	client *genai.Client
	cfg    config.GeminiConfig
	logger *slog.Logger
}

// NewGenAIBackend creates a Gemini-backed Backend. It returns
// ErrNotConfigured when cfg carries no API key.
func NewGenAIBackend(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (*GenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	logger.Info("Gemini client initialized",
		"text_model", cfg.TextModel,
		"speech_model", cfg.SpeechModel,
		"video_model", cfg.VideoModel,
	)

	return &GenAIBackend{client: client, cfg: cfg, logger: logger}, nil
}

// GenerateText runs a single-turn completion.
func (b *GenAIBackend) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	cc := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		cc.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.Temperature != nil {
		cc.Temperature = req.Temperature
	}
	if req.JSON {
		cc.ResponseMIMEType = "application/json"
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.cfg.TextModel, genai.Text(req.Prompt), cc)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// SynthesizeSpeech asks the TTS model for narration of text.
func (b *GenAIBackend) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	cc := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: b.cfg.Voice},
			},
		},
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	resp, err := b.client.Models.GenerateContent(ctx, b.cfg.SpeechModel, contents, cc)
	if err != nil {
		return nil, fmt.Errorf("generate speech: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoAudio
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].InlineData == nil || len(parts[0].InlineData.Data) == 0 {
		return nil, ErrNoAudio
	}
	return parts[0].InlineData.Data, nil
}

// StartVideo submits a text-to-video job.
func (b *GenAIBackend) StartVideo(ctx context.Context, prompt string) (*VideoJob, error) {
	op, err := b.client.Models.GenerateVideos(ctx, b.cfg.VideoModel, prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     videoResolution,
		AspectRatio:    videoAspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("start video generation: %w", err)
	}
	return jobFromOperation(op), nil
}

// PollVideo refreshes the operation state.
func (b *GenAIBackend) PollVideo(ctx context.Context, job *VideoJob) (*VideoJob, error) {
	op, ok := job.handle.(*genai.GenerateVideosOperation)
	if !ok || op == nil {
		return nil, fmt.Errorf("video job %q has no operation handle", job.Name)
	}
	next, err := b.client.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return nil, fmt.Errorf("poll video operation: %w", err)
	}
	return jobFromOperation(next), nil
}

// DownloadVideo fetches the bytes of the first generated video.
func (b *GenAIBackend) DownloadVideo(ctx context.Context, job *VideoJob) (*Video, error) {
	op, ok := job.handle.(*genai.GenerateVideosOperation)
	if !ok || op == nil || op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return nil, ErrNoVideo
	}
	generated := op.Response.GeneratedVideos[0]
	if generated == nil || generated.Video == nil {
		return nil, ErrNoVideo
	}

	data := generated.Video.VideoBytes
	if len(data) == 0 {
		if generated.Video.URI == "" {
			return nil, ErrNoVideo
		}
		downloaded, err := b.client.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(generated), nil)
		if err != nil {
			return nil, fmt.Errorf("download video: %w", err)
		}
		data = downloaded
	}

	mime := generated.Video.MIMEType
	if mime == "" {
		mime = "video/mp4"
	}
	return &Video{Data: data, MIMEType: mime, URI: generated.Video.URI}, nil
}

func jobFromOperation(op *genai.GenerateVideosOperation) *VideoJob {
	job := &VideoJob{Name: op.Name, Done: op.Done, handle: op}
	if len(op.Error) > 0 {
		job.Failure = fmt.Sprint(op.Error["message"])
	}
	return job
}

var _ Backend = (*GenAIBackend)(nil)
