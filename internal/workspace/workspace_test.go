package workspace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/scripture-companion/internal/domain"
	"github.com/ashureev/scripture-companion/internal/gemini"
	"github.com/ashureev/scripture-companion/internal/media"
	"github.com/ashureev/scripture-companion/internal/notes"
	"github.com/ashureev/scripture-companion/internal/quiz"
	"github.com/ashureev/scripture-companion/internal/stories"
)

type fakeContent struct {
	mu        sync.Mutex
	reply     string
	questions []domain.QuizQuestion
	quizBlock chan struct{}
	quizEnter chan struct{}
}

func (f *fakeContent) GenerateReflectiveContent(_ context.Context, _, _ string) string {
	return f.reply
}

func (f *fakeContent) GenerateSpeech(_ context.Context, _ string) (string, error) {
	return "AAA=", nil
}

func (f *fakeContent) GenerateStoryQuiz(_ context.Context, _ string) ([]domain.QuizQuestion, error) {
	if f.quizEnter != nil {
		f.quizEnter <- struct{}{}
	}
	if f.quizBlock != nil {
		<-f.quizBlock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.questions, nil
}

func (f *fakeContent) GenerateSceneVideo(_ context.Context, _ string) (*gemini.Video, error) {
	return &gemini.Video{Data: []byte("mp4"), MIMEType: "video/mp4"}, nil
}

func (f *fakeContent) Configured() bool { return true }

type fakeClips struct{}

func (fakeClips) SaveVideo(_ []byte, _ string) (media.Asset, error) {
	return media.Asset{ID: "v", URL: "/api/media/v"}, nil
}

func (fakeClips) SaveNarration(_ string) (media.Asset, error) {
	return media.Asset{ID: "a", URL: "/api/audio/a"}, nil
}

type memKV struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memKV) GetValue(_ context.Context, userID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[userID+"/"+key]
	return v, ok, nil
}

func (m *memKV) PutValue(_ context.Context, userID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[userID+"/"+key] = value
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, content *fakeContent) *Manager {
	t.Helper()
	catalog, err := stories.Load()
	if err != nil {
		t.Fatalf("stories.Load failed: %v", err)
	}
	return NewManager(Deps{
		Catalog: catalog,
		Content: content,
		Clips:   fakeClips{},
		Notes:   notes.NewRegistry(&memKV{values: map[string]string{}}, quietLogger()),
		Logger:  quietLogger(),
	})
}

func oneQuestion() []domain.QuizQuestion {
	return []domain.QuizQuestion{{Question: "Q", Options: []string{"a", "b", "c", "d"}, CorrectAnswerIndex: 1}}
}

func TestStoryChangeResetsDependents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := newTestManager(t, &fakeContent{reply: "reflection", questions: oneQuestion()}).Get("u", "tab")

	if _, err := w.Chat().Send(ctx, "hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := w.StartQuiz(ctx); err != nil {
		t.Fatalf("StartQuiz failed: %v", err)
	}
	if _, err := w.VisualizeHero(ctx, nil); err != nil {
		t.Fatalf("VisualizeHero failed: %v", err)
	}
	if _, err := w.VisualizeInsight(ctx, "reflection", nil); err != nil {
		t.Fatalf("VisualizeInsight failed: %v", err)
	}
	if _, err := w.AddNote(ctx, "keep", ""); err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}

	story, err := w.SelectStory("elijah")
	if err != nil {
		t.Fatalf("SelectStory failed: %v", err)
	}

	if w.Quiz().State != quiz.StateIdle {
		t.Fatalf("expected idle quiz, got %s", w.Quiz().State)
	}
	msgs := w.Chat().Messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, story.ChapterRef) {
		t.Fatalf("expected single greeting for %s, got %+v", story.ChapterRef, msgs)
	}
	if w.Hero().VideoURL != "" {
		t.Fatal("expected hero video cleared")
	}
	if _, ok := w.Visualization(); ok {
		t.Fatal("expected companion visualization cleared")
	}
	view, _ := w.Notes(ctx)
	if len(view.Notes) != 1 {
		t.Fatalf("notes must survive a story change, got %+v", view.Notes)
	}
}

func TestSelectUnknownStory(t *testing.T) {
	t.Parallel()

	w := newTestManager(t, &fakeContent{}).Get("u", "tab")
	if _, err := w.SelectStory("nope"); !errors.Is(err, stories.ErrNotFound) {
		t.Fatalf("expected stories.ErrNotFound, got %v", err)
	}
	if w.Story().ID != "moses" {
		t.Fatalf("story must not change, got %s", w.Story().ID)
	}
}

func TestQuizResultForPreviousStoryIsDiscarded(t *testing.T) {
	t.Parallel()

	content := &fakeContent{questions: oneQuestion(), quizBlock: make(chan struct{}), quizEnter: make(chan struct{}, 1)}
	w := newTestManager(t, content).Get("u", "tab")

	done := make(chan error, 1)
	go func() {
		_, err := w.StartQuiz(context.Background())
		done <- err
	}()
	<-content.quizEnter

	if _, err := w.SelectStory("david"); err != nil {
		t.Fatalf("SelectStory failed: %v", err)
	}
	close(content.quizBlock)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if w.Quiz().State != quiz.StateIdle {
		t.Fatalf("stale quiz must not activate, got %s", w.Quiz().State)
	}
}

func TestQuizFlow(t *testing.T) {
	t.Parallel()

	w := newTestManager(t, &fakeContent{questions: oneQuestion()}).Get("u", "tab")
	if _, err := w.StartQuiz(context.Background()); err != nil {
		t.Fatalf("StartQuiz failed: %v", err)
	}
	if _, err := w.NextQuestion(); !errors.Is(err, quiz.ErrUnanswered) {
		t.Fatalf("expected ErrUnanswered, got %v", err)
	}
	if _, err := w.AnswerQuiz(1); err != nil {
		t.Fatalf("AnswerQuiz failed: %v", err)
	}
	view, err := w.NextQuestion()
	if err != nil {
		t.Fatalf("NextQuestion failed: %v", err)
	}
	if view.State != quiz.StateFinished || view.Score == nil || *view.Score != 1 || *view.Percentage != 100 {
		t.Fatalf("unexpected finished view %+v", view)
	}
	view, err = w.RetakeQuiz()
	if err != nil || view.State != quiz.StateIdle || view.Total != 0 {
		t.Fatalf("unexpected retake view %+v, %v", view, err)
	}
}

func TestSaveInsightOpensSharedNotes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t, &fakeContent{reply: "insight"})
	tab1 := m.Get("u", "tab-1")
	tab2 := m.Get("u", "tab-2")

	if _, err := tab1.Chat().Send(ctx, "q"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	note, err := tab1.SaveInsight(ctx, 2)
	if err != nil {
		t.Fatalf("SaveInsight failed: %v", err)
	}
	if note.Source != notes.SourceAIInsight {
		t.Fatalf("unexpected source %q", note.Source)
	}

	v1, _ := tab1.Notes(ctx)
	v2, _ := tab2.Notes(ctx)
	if !v1.IsOpen || v2.IsOpen {
		t.Fatalf("only the saving tab opens its widget: %v %v", v1.IsOpen, v2.IsOpen)
	}
	if len(v2.Notes) != 1 || v2.Notes[0].ID != note.ID {
		t.Fatalf("notes must be shared across tabs, got %+v", v2.Notes)
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	w := newTestManager(t, &fakeContent{}).Get("u", "tab")
	v, err := w.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if v.Story.ID != "moses" || len(v.Messages) != 1 || len(v.QuickPrompts) != 4 || !v.AIEnabled {
		t.Fatalf("unexpected snapshot %+v", v)
	}
	if v.Speaking != -1 || v.Visualization != nil {
		t.Fatalf("unexpected idle fields %+v", v)
	}
}

func TestManagerEvictsIdle(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &fakeContent{})
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }

	a := m.Get("u", "a")
	if m.Get("u", "a") != a {
		t.Fatal("expected the same workspace for the same pair")
	}
	m.Get("u", "b")

	now = now.Add(30 * time.Minute)
	m.Get("u", "b")

	now = now.Add(45 * time.Minute)
	if evicted := m.Evict(time.Hour); evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 remaining workspace, got %d", m.Len())
	}
}

func TestManagerEvictReleasesNotesOfGoneUsers(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &fakeContent{})
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }

	m.Get("alice", "tab")
	m.Get("bob", "tab")
	if got := m.deps.Notes.Len(); got != 2 {
		t.Fatalf("expected 2 notes stores, got %d", got)
	}

	now = now.Add(2 * time.Hour)
	m.Get("bob", "tab")
	if evicted := m.Evict(time.Hour); evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if got := m.deps.Notes.Len(); got != 1 {
		t.Fatalf("expected alice's notes store released, %d remain", got)
	}
}

type countingPruner struct{ calls int }

func (c *countingPruner) Prune(time.Duration) (int, error) {
	c.calls++
	return 2, nil
}

type countingMarks struct{ calls int }

func (c *countingMarks) CleanupVisitMarks(context.Context, time.Duration) (int64, error) {
	c.calls++
	return 0, nil
}

func TestSweepRunsEveryCleanup(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, &fakeContent{})
	pruner, marks := &countingPruner{}, &countingMarks{}
	s := NewSweeper(m, marks, pruner, time.Hour, quietLogger())

	s.Sweep(context.Background())
	if pruner.calls != 1 || marks.calls != 1 {
		t.Fatalf("expected one prune and one mark cleanup, got %d/%d", pruner.calls, marks.calls)
	}
}

func TestSweeperStopsOnCancel(t *testing.T) {
	t.Parallel()

	s := NewSweeper(newTestManager(t, &fakeContent{}), nil, nil, time.Hour, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}
}
