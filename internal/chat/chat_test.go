package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/ashureev/scripture-companion/internal/domain"
	"github.com/ashureev/scripture-companion/internal/media"
)

type fakeResponder struct {
	mu      sync.Mutex
	reply   string
	block   chan struct{}
	entered chan struct{}
	prompts []string
	systems []string
}

func (f *fakeResponder) GenerateReflectiveContent(_ context.Context, prompt, systemContext string) string {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.systems = append(f.systems, systemContext)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.reply
}

type fakeSpeaker struct {
	payload string
	err     error
}

func (f *fakeSpeaker) GenerateSpeech(_ context.Context, _ string) (string, error) {
	return f.payload, f.err
}

type fakeClips struct{ saved []string }

func (f *fakeClips) SaveNarration(payload string) (media.Asset, error) {
	f.saved = append(f.saved, payload)
	return media.Asset{ID: "clip", Kind: media.KindAudio, URL: "/api/audio/clip"}, nil
}

type fakeNotes struct{ added []domain.Note }

func (f *fakeNotes) AddNote(_ context.Context, content, source string) (domain.Note, error) {
	n := domain.Note{ID: "n1", Content: content, Source: source}
	f.added = append(f.added, n)
	return n, nil
}

var (
	moses  = domain.Story{ID: "moses", ChapterRef: "Exodus 3", TitlePrefix: "The", TitleHighlight: "Burning Bush", Reference: "Exodus 3:1-15", AIContext: "You guide reflection on Exodus 3."}
	elijah = domain.Story{ID: "elijah", ChapterRef: "1 Kings 19", TitlePrefix: "The", TitleHighlight: "Still Small Voice", AIContext: "You guide reflection on 1 Kings 19."}
)

func newTestSession(r Responder, sp Speaker, c Clips) *Session {
	return NewSession(moses, r, sp, c, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewSessionGreets(t *testing.T) {
	t.Parallel()

	s := newTestSession(&fakeResponder{}, &fakeSpeaker{}, &fakeClips{})
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Role != domain.RoleModel {
		t.Fatalf("expected single greeting, got %+v", msgs)
	}
	if !strings.Contains(msgs[0].Text, "Exodus 3") || !strings.Contains(msgs[0].Text, "The Burning Bush") {
		t.Fatalf("greeting does not reference the story: %q", msgs[0].Text)
	}
}

func TestSendAppendsBothTurns(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "Take off your sandals."}
	s := newTestSession(r, &fakeSpeaker{}, &fakeClips{})

	msg, err := s.Send(context.Background(), "Why holy ground?")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.Role != domain.RoleModel || msg.Text != "Take off your sandals." {
		t.Fatalf("unexpected reply %+v", msg)
	}
	msgs := s.Messages()
	if len(msgs) != 3 || msgs[1].Role != domain.RoleUser || msgs[1].Text != "Why holy ground?" {
		t.Fatalf("unexpected history %+v", msgs)
	}
	if r.systems[0] != moses.AIContext {
		t.Fatalf("expected story context, got %q", r.systems[0])
	}
}

func TestSendRejectsBlankAndConcurrent(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := newTestSession(r, &fakeSpeaker{}, &fakeClips{})

	if _, err := s.Send(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "first")
		done <- err
	}()
	<-r.entered

	if _, err := s.Send(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(r.block)
	if err := <-done; err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if len(s.Messages()) != 3 {
		t.Fatalf("expected greeting plus one exchange, got %d", len(s.Messages()))
	}
}

func TestResetDropsInFlightReply(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "late", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := newTestSession(r, &fakeSpeaker{}, &fakeClips{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "question")
		done <- err
	}()
	<-r.entered

	s.Reset(elijah)
	close(r.block)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	msgs := s.Messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "1 Kings 19") {
		t.Fatalf("expected only the new greeting, got %+v", msgs)
	}
	if s.Busy() {
		t.Fatal("reset session must accept new messages")
	}
}

func TestQuickPrompt(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok"}
	s := newTestSession(r, &fakeSpeaker{}, &fakeClips{})

	if _, err := s.SendQuickPrompt(context.Background(), PromptExplain); err != nil {
		t.Fatalf("SendQuickPrompt failed: %v", err)
	}
	if r.prompts[0] != "Explain the theological significance of Exodus 3:1-15." {
		t.Fatalf("unexpected prompt %q", r.prompts[0])
	}
	if _, err := s.SendQuickPrompt(context.Background(), "sing"); !errors.Is(err, ErrUnknownQuickPrompt) {
		t.Fatalf("expected ErrUnknownQuickPrompt, got %v", err)
	}
}

func TestSpeakOnlyModelMessages(t *testing.T) {
	t.Parallel()

	clips := &fakeClips{}
	s := newTestSession(&fakeResponder{reply: "answer"}, &fakeSpeaker{payload: "AAA="}, clips)
	if _, err := s.Send(context.Background(), "q"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if _, err := s.Speak(context.Background(), 1); !errors.Is(err, ErrNotModelMessage) {
		t.Fatalf("expected ErrNotModelMessage, got %v", err)
	}
	if _, err := s.Speak(context.Background(), 9); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("expected ErrNoMessage, got %v", err)
	}

	clip, err := s.Speak(context.Background(), 2)
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if clip.URL != "/api/audio/clip" || len(clips.saved) != 1 || clips.saved[0] != "AAA=" {
		t.Fatalf("unexpected clip %+v saved=%v", clip, clips.saved)
	}
	if s.Speaking() != -1 {
		t.Fatal("speaking flag must clear after narration")
	}
}

func TestSpeakFailureClearsFlag(t *testing.T) {
	t.Parallel()

	s := newTestSession(&fakeResponder{}, &fakeSpeaker{err: errors.New("tts down")}, &fakeClips{})
	if _, err := s.Speak(context.Background(), 0); err == nil {
		t.Fatal("expected narration error")
	}
	if s.Speaking() != -1 {
		t.Fatal("speaking flag must clear after failure")
	}
}

func TestSaveInsight(t *testing.T) {
	t.Parallel()

	taker := &fakeNotes{}
	s := newTestSession(&fakeResponder{reply: "insight"}, &fakeSpeaker{}, &fakeClips{})
	if _, err := s.Send(context.Background(), "q"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if _, err := s.SaveInsight(context.Background(), 1, taker); !errors.Is(err, ErrNotModelMessage) {
		t.Fatalf("expected ErrNotModelMessage, got %v", err)
	}
	note, err := s.SaveInsight(context.Background(), 2, taker)
	if err != nil {
		t.Fatalf("SaveInsight failed: %v", err)
	}
	if note.Content != "insight" || note.Source != "AI Insight" {
		t.Fatalf("unexpected note %+v", note)
	}
}
