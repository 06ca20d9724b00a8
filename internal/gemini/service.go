package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/scripture-companion/internal/domain"
)

// User-facing chat fallbacks.
const (
	MsgNotConfigured = "Please configure your API Key to receive AI insights."
	MsgEmptyResponse = "I couldn't generate a response at this time."
	MsgRemoteFailure = "Sorry, I encountered an error while consulting the scriptures."
)

const quizPromptTemplate = `Generate 5 multiple choice questions based on this Bible story context: %s.
    Return a JSON array where each object has:
    - 'question' (string)
    - 'options' (array of 4 strings)
    - 'correctAnswerIndex' (number, 0-3)
    - 'explanation' (string, short reason why the answer is correct)`

// Options tunes the Service.
type Options struct {
	Temperature  float32
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Service applies the degrade-to-safe-state policy on top of a Backend.
// A nil backend means the API is not configured.
type Service struct {
	backend      Backend
	temperature  float32
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewService creates a content service. backend may be nil.
func NewService(backend Backend, opts Options) *Service {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		backend:      backend,
		temperature:  opts.Temperature,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
}

// Configured reports whether a backend is available.
func (s *Service) Configured() bool {
	return s != nil && s.backend != nil
}

// GenerateReflectiveContent answers prompt in the voice set by systemContext.
// It never fails: errors are logged and mapped to a fixed apology.
func (s *Service) GenerateReflectiveContent(ctx context.Context, prompt, systemContext string) string {
	if !s.Configured() {
		return MsgNotConfigured
	}

	temp := s.temperature
	text, err := s.backend.GenerateText(ctx, TextRequest{
		Prompt:            prompt,
		SystemInstruction: systemContext,
		Temperature:       &temp,
	})
	if err != nil {
		s.logger.Error("Reflective content generation failed", "error", err)
		return MsgRemoteFailure
	}
	if strings.TrimSpace(text) == "" {
		return MsgEmptyResponse
	}
	return text
}

// GenerateSpeech returns base64-encoded 16-bit mono PCM narration of text.
func (s *Service) GenerateSpeech(ctx context.Context, text string) (string, error) {
	if !s.Configured() {
		s.logger.Error("API key missing for speech synthesis")
		return "", ErrNotConfigured
	}

	pcm, err := s.backend.SynthesizeSpeech(ctx, text)
	if err != nil {
		s.logger.Error("Speech generation failed", "error", err)
		return "", err
	}
	if len(pcm) == 0 {
		return "", ErrNoAudio
	}
	return base64.StdEncoding.EncodeToString(pcm), nil
}

// GenerateSceneVideo submits a video job and polls it on a fixed interval
// until it completes or ctx is done. There is no other deadline.
func (s *Service) GenerateSceneVideo(ctx context.Context, prompt string) (*Video, error) {
	if !s.Configured() {
		s.logger.Error("API key missing for video generation")
		return nil, ErrNotConfigured
	}

	job, err := s.backend.StartVideo(ctx, prompt)
	if err != nil {
		s.logger.Error("Video generation failed to start", "error", err)
		return nil, err
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	polls := 0
	for !job.Done {
		select {
		case <-ctx.Done():
			s.logger.Warn("Video generation abandoned", "operation", job.Name, "polls", polls, "error", ctx.Err())
			return nil, ctx.Err()
		case <-ticker.C:
		}

		polls++
		job, err = s.backend.PollVideo(ctx, job)
		if err != nil {
			s.logger.Error("Video operation poll failed", "error", err, "polls", polls)
			return nil, err
		}
	}

	if job.Failure != "" {
		err := fmt.Errorf("video operation %s failed: %s", job.Name, job.Failure)
		s.logger.Error("Video generation failed", "error", err)
		return nil, err
	}

	video, err := s.backend.DownloadVideo(ctx, job)
	if err != nil {
		s.logger.Error("Video download failed", "operation", job.Name, "error", err)
		return nil, err
	}
	if video == nil || len(video.Data) == 0 {
		return nil, ErrNoVideo
	}

	s.logger.Info("Video generated", "operation", job.Name, "polls", polls, "bytes", len(video.Data))
	return video, nil
}

// GenerateStoryQuiz asks for five questions about storyContext. Failures and
// malformed responses yield an empty set alongside the cause.
func (s *Service) GenerateStoryQuiz(ctx context.Context, storyContext string) ([]domain.QuizQuestion, error) {
	if !s.Configured() {
		s.logger.Error("API key missing for quiz generation")
		return nil, ErrNotConfigured
	}

	text, err := s.backend.GenerateText(ctx, TextRequest{
		Prompt: fmt.Sprintf(quizPromptTemplate, storyContext),
		JSON:   true,
	})
	if err != nil {
		s.logger.Error("Quiz generation failed", "error", err)
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	questions, err := ParseQuiz(text)
	if err != nil {
		s.logger.Error("Quiz response was not valid JSON", "error", err)
		return nil, err
	}
	return questions, nil
}

// ParseQuiz decodes a JSON array of questions, dropping entries whose
// correct index does not address one of their options.
func ParseQuiz(text string) ([]domain.QuizQuestion, error) {
	var raw []domain.QuizQuestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("decode quiz: %w", err)
	}

	questions := make([]domain.QuizQuestion, 0, len(raw))
	for _, q := range raw {
		if q.Question == "" || !q.ValidOption(q.CorrectAnswerIndex) {
			continue
		}
		questions = append(questions, q)
	}
	if len(raw) > 0 && len(questions) == 0 {
		return nil, errors.New("decode quiz: no usable questions")
	}
	return questions, nil
}
