// Package chat holds the companion conversation for one story.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ashureev/scripture-companion/internal/domain"
	"github.com/ashureev/scripture-companion/internal/media"
	"github.com/ashureev/scripture-companion/internal/notes"
)

var (
	// ErrEmptyMessage is returned when sending blank text.
	ErrEmptyMessage = errors.New("chat: message is empty")
	// ErrBusy is returned while a send or narration is already in flight.
	ErrBusy = errors.New("chat: request already in flight")
	// ErrStale is returned when the story changed while a request was in flight.
	ErrStale = errors.New("chat: story changed during request")
	// ErrNoMessage is returned for an index outside the history.
	ErrNoMessage = errors.New("chat: no such message")
	// ErrNotModelMessage is returned when narrating or saving a visitor message.
	ErrNotModelMessage = errors.New("chat: only companion replies can be used")
	// ErrUnknownQuickPrompt is returned for an unrecognised quick prompt.
	ErrUnknownQuickPrompt = errors.New("chat: unknown quick prompt")
)

// Responder produces companion replies.
type Responder interface {
	GenerateReflectiveContent(ctx context.Context, prompt, systemContext string) string
}

// Speaker synthesizes base64 PCM narration.
type Speaker interface {
	GenerateSpeech(ctx context.Context, text string) (string, error)
}

// Clips stores narration payloads as playable clips.
type Clips interface {
	SaveNarration(payload string) (media.Asset, error)
}

// NoteTaker saves insights.
type NoteTaker interface {
	AddNote(ctx context.Context, content, source string) (domain.Note, error)
}

// Session is the append-only conversation about the current story.
type Session struct {
	responder Responder
	speaker   Speaker
	clips     Clips
	logger    *slog.Logger

	mu       sync.Mutex
	story    domain.Story
	messages []domain.ChatMessage
	sending  bool
	speaking int
	gen      uint64
}

// NewSession starts a conversation greeting the visitor for story.
func NewSession(story domain.Story, responder Responder, speaker Speaker, clips Clips, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{responder: responder, speaker: speaker, clips: clips, logger: logger}
	s.reset(story)
	return s
}

// Reset discards the history and greets the visitor for story.
// Replies still in flight are dropped when they arrive.
func (s *Session) Reset(story domain.Story) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(story)
}

func (s *Session) reset(story domain.Story) {
	s.gen++
	s.story = story
	s.messages = []domain.ChatMessage{domain.Greeting(story)}
	s.sending = false
	s.speaking = -1
}

// Messages returns a copy of the history.
func (s *Session) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatMessage(nil), s.messages...)
}

// Busy reports whether a reply is pending.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Send appends text, asks for a reply in the story's context and appends it.
func (s *Session) Send(ctx context.Context, text string) (domain.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return domain.ChatMessage{}, ErrBusy
	}
	s.sending = true
	s.messages = append(s.messages, domain.ChatMessage{Role: domain.RoleUser, Text: text})
	gen, story := s.gen, s.story
	s.mu.Unlock()

	reply := s.responder.GenerateReflectiveContent(ctx, text, story.AIContext)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		s.logger.Info("Discarding chat reply for previous story", "story_id", story.ID)
		return domain.ChatMessage{}, ErrStale
	}
	msg := domain.ChatMessage{Role: domain.RoleModel, Text: reply}
	s.messages = append(s.messages, msg)
	s.sending = false
	return msg, nil
}

// SendQuickPrompt sends one of the canned prompts.
func (s *Session) SendQuickPrompt(ctx context.Context, kind QuickPrompt) (domain.ChatMessage, error) {
	s.mu.Lock()
	story := s.story
	s.mu.Unlock()

	text, err := kind.Text(story)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return s.Send(ctx, text)
}

// modelMessage returns the companion reply at index. Callers hold s.mu.
func (s *Session) modelMessage(index int) (domain.ChatMessage, error) {
	if index < 0 || index >= len(s.messages) {
		return domain.ChatMessage{}, fmt.Errorf("%w: %d", ErrNoMessage, index)
	}
	msg := s.messages[index]
	if msg.Role != domain.RoleModel {
		return domain.ChatMessage{}, ErrNotModelMessage
	}
	return msg, nil
}

// Speak narrates the companion reply at index. Only one narration runs at a time.
func (s *Session) Speak(ctx context.Context, index int) (media.Asset, error) {
	s.mu.Lock()
	if s.speaking >= 0 {
		s.mu.Unlock()
		return media.Asset{}, ErrBusy
	}
	msg, err := s.modelMessage(index)
	if err != nil {
		s.mu.Unlock()
		return media.Asset{}, err
	}
	s.speaking = index
	gen := s.gen
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.gen == gen {
			s.speaking = -1
		}
		s.mu.Unlock()
	}()

	payload, err := s.speaker.GenerateSpeech(ctx, msg.Text)
	if err != nil {
		return media.Asset{}, fmt.Errorf("narrate message %d: %w", index, err)
	}
	clip, err := s.clips.SaveNarration(payload)
	if err != nil {
		s.logger.Error("Failed to store narration", "error", err)
		return media.Asset{}, fmt.Errorf("store narration: %w", err)
	}
	return clip, nil
}

// Speaking returns the index being narrated, or -1.
func (s *Session) Speaking() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// SaveInsight saves the companion reply at index as a note.
func (s *Session) SaveInsight(ctx context.Context, index int, taker NoteTaker) (domain.Note, error) {
	s.mu.Lock()
	msg, err := s.modelMessage(index)
	s.mu.Unlock()
	if err != nil {
		return domain.Note{}, err
	}
	return taker.AddNote(ctx, msg.Text, notes.SourceAIInsight)
}
