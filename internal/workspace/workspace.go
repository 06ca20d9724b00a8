// Package workspace coordinates the per-tab view state: the selected story
// and the chat, quiz, banner video, insight visualization and notes widget
// that depend on it.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/scripture-companion/internal/chat"
	"github.com/ashureev/scripture-companion/internal/domain"
	"github.com/ashureev/scripture-companion/internal/media"
	"github.com/ashureev/scripture-companion/internal/notes"
	"github.com/ashureev/scripture-companion/internal/quiz"
	"github.com/ashureev/scripture-companion/internal/visualize"
)

// ErrStale is returned when the story changed while a request was in flight.
var ErrStale = errors.New("workspace: story changed during request")

// Catalog resolves stories.
type Catalog interface {
	Get(id string) (domain.Story, error)
	Default() domain.Story
}

// Content is the generative surface a workspace drives.
type Content interface {
	chat.Responder
	chat.Speaker
	quiz.Generator
	visualize.VideoMaker
	Configured() bool
}

// Clips stores generated media.
type Clips interface {
	SaveVideo(data []byte, mimeType string) (media.Asset, error)
	SaveNarration(payload string) (media.Asset, error)
}

// Deps are shared by every workspace.
type Deps struct {
	Catalog Catalog
	Content Content
	Clips   Clips
	Notes   *notes.Registry
	Logger  *slog.Logger
}

// Workspace is one tab's state. Mutations are serialised by its mutex;
// generative calls run outside it and are applied only if the story has
// not changed in the meantime.
type Workspace struct {
	userID    string
	sessionID string
	catalog   Catalog
	content   Content
	logger    *slog.Logger

	chat      *chat.Session
	hero      *visualize.Hero
	companion *visualize.Companion

	mu       sync.Mutex
	story    domain.Story
	gen      uint64
	quiz     *quiz.Machine
	notes    *notes.Widget
	lastUsed time.Time
}

func newWorkspace(deps Deps, userID, sessionID string, now time.Time) *Workspace {
	logger := deps.Logger.With("user_id", userID, "session_id", sessionID)
	story := deps.Catalog.Default()
	pipeline := visualize.NewPipeline(deps.Content, deps.Content, deps.Clips, logger)

	return &Workspace{
		userID:    userID,
		sessionID: sessionID,
		catalog:   deps.Catalog,
		content:   deps.Content,
		logger:    logger,
		chat:      chat.NewSession(story, deps.Content, deps.Content, deps.Clips, logger),
		hero:      visualize.NewHero(pipeline),
		companion: visualize.NewCompanion(pipeline),
		story:     story,
		quiz:      quiz.New(),
		notes:     notes.NewWidget(deps.Notes.For(userID)),
		lastUsed:  now,
	}
}

// Story returns the selected story.
func (w *Workspace) Story() domain.Story {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.story
}

// SelectStory switches to the story with id.
func (w *Workspace) SelectStory(id string) (domain.Story, error) {
	story, err := w.catalog.Get(id)
	if err != nil {
		return domain.Story{}, err
	}
	w.OnStoryChanged(story)
	return story, nil
}

// OnStoryChanged makes story current and resets everything derived from the
// previous one: the quiz goes idle, the chat restarts with a greeting and
// both visualizations are cleared. Notes are untouched.
func (w *Workspace) OnStoryChanged(story domain.Story) {
	w.mu.Lock()
	w.gen++
	w.story = story
	w.quiz.Reset()
	w.mu.Unlock()

	w.chat.Reset(story)
	w.hero.Reset()
	w.companion.Close()

	w.logger.Info("Story changed", "story_id", story.ID)
}

// Chat returns the conversation for the current story.
func (w *Workspace) Chat() *chat.Session {
	return w.chat
}

// SaveInsight saves the companion reply at index to the notes widget.
func (w *Workspace) SaveInsight(ctx context.Context, index int) (domain.Note, error) {
	return w.chat.SaveInsight(ctx, index, w)
}

// StartQuiz generates questions for the current story.
func (w *Workspace) StartQuiz(ctx context.Context) (quiz.View, error) {
	w.mu.Lock()
	if err := w.quiz.Begin(); err != nil {
		w.mu.Unlock()
		return quiz.View{}, err
	}
	gen, story := w.gen, w.story
	w.mu.Unlock()

	questions, genErr := w.content.GenerateStoryQuiz(ctx, story.QuizContext())

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen {
		w.logger.Info("Discarding quiz for previous story", "story_id", story.ID)
		return quiz.View{}, ErrStale
	}
	if genErr != nil {
		questions = nil
	}
	if err := w.quiz.Complete(questions); err != nil {
		return quiz.View{}, err
	}
	if genErr != nil {
		return w.quiz.Snapshot(), fmt.Errorf("generate quiz: %w", genErr)
	}
	return w.quiz.Snapshot(), nil
}

// AnswerQuiz records option for the current question.
func (w *Workspace) AnswerQuiz(option int) (quiz.View, error) {
	return w.withQuiz(func(m *quiz.Machine) error { return m.SelectOption(option) })
}

// NextQuestion advances the quiz.
func (w *Workspace) NextQuestion() (quiz.View, error) {
	return w.withQuiz(func(m *quiz.Machine) error { return m.Next() })
}

// RetakeQuiz returns a finished quiz to idle.
func (w *Workspace) RetakeQuiz() (quiz.View, error) {
	return w.withQuiz(func(m *quiz.Machine) error { return m.Retake() })
}

// Quiz returns the quiz snapshot.
func (w *Workspace) Quiz() quiz.View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.quiz.Snapshot()
}

func (w *Workspace) withQuiz(fn func(*quiz.Machine) error) (quiz.View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := fn(w.quiz); err != nil {
		return w.quiz.Snapshot(), err
	}
	return w.quiz.Snapshot(), nil
}

// VisualizeHero runs the banner pipeline for the current story.
func (w *Workspace) VisualizeHero(ctx context.Context, progress visualize.Progress) (domain.VisualizationState, error) {
	return w.hero.Visualize(ctx, w.Story(), progress)
}

// Hero returns the banner visualization state.
func (w *Workspace) Hero() domain.VisualizationState {
	return w.hero.State()
}

// VisualizeInsight runs the companion pipeline for text.
func (w *Workspace) VisualizeInsight(ctx context.Context, text string, progress visualize.Progress) (domain.VisualizationState, error) {
	return w.companion.Visualize(ctx, w.Story(), text, progress)
}

// Visualization returns the insight visualization being shown, if any.
func (w *Workspace) Visualization() (domain.VisualizationState, bool) {
	return w.companion.State()
}

// CloseVisualization discards the insight visualization.
func (w *Workspace) CloseVisualization() {
	w.companion.Close()
}

// AddNote saves a note and opens the widget.
func (w *Workspace) AddNote(ctx context.Context, content, source string) (domain.Note, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notes.AddNote(ctx, content, source)
}

// DeleteNote removes a note.
func (w *Workspace) DeleteNote(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notes.DeleteNote(ctx, id)
}

// ToggleNotes opens or closes the widget.
func (w *Workspace) ToggleNotes(ctx context.Context) (notes.WidgetView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notes.ToggleOpen()
	return w.notes.Snapshot(ctx)
}

// SetDraft replaces the widget draft.
func (w *Workspace) SetDraft(ctx context.Context, text string, open bool) (notes.WidgetView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if open {
		w.notes.OpenWithDraft(text)
	} else {
		w.notes.SetDraft(text)
	}
	return w.notes.Snapshot(ctx)
}

// Notes returns the widget snapshot.
func (w *Workspace) Notes(ctx context.Context) (notes.WidgetView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notes.Snapshot(ctx)
}

// View is the full client-facing snapshot of a workspace.
type View struct {
	Story         domain.Story               `json:"story"`
	Messages      []domain.ChatMessage       `json:"messages"`
	ChatBusy      bool                       `json:"chat_busy"`
	Speaking      int                        `json:"speaking"`
	QuickPrompts  []QuickPromptView          `json:"quick_prompts"`
	Quiz          quiz.View                  `json:"quiz"`
	Hero          domain.VisualizationState  `json:"hero"`
	Visualization *domain.VisualizationState `json:"visualization,omitempty"`
	Notes         notes.WidgetView           `json:"notes"`
	AIEnabled     bool                       `json:"ai_enabled"`
}

// QuickPromptView is a canned prompt button.
type QuickPromptView struct {
	ID    chat.QuickPrompt `json:"id"`
	Label string           `json:"label"`
}

// Snapshot renders the workspace.
func (w *Workspace) Snapshot(ctx context.Context) (View, error) {
	w.mu.Lock()
	v := View{Story: w.story, Quiz: w.quiz.Snapshot()}
	nv, err := w.notes.Snapshot(ctx)
	w.mu.Unlock()
	if err != nil {
		return View{}, err
	}
	v.Notes = nv

	v.Messages = w.chat.Messages()
	v.ChatBusy = w.chat.Busy()
	v.Speaking = w.chat.Speaking()
	for _, p := range chat.QuickPrompts {
		v.QuickPrompts = append(v.QuickPrompts, QuickPromptView{ID: p, Label: p.Label()})
	}
	v.Hero = w.hero.State()
	if s, ok := w.companion.State(); ok {
		v.Visualization = &s
	}
	v.AIEnabled = w.content.Configured()
	return v, nil
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastUsed = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}
