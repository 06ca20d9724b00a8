package notes

import (
	"context"

	"github.com/ashureev/scripture-companion/internal/domain"
)

// Widget is one tab's view of a user's notes: the shared list plus its own
// open flag and draft text. It is not safe for concurrent use.
type Widget struct {
	store  *Store
	isOpen bool
	draft  string
}

// WidgetView is the client-facing snapshot of a widget.
type WidgetView struct {
	Notes  []domain.Note `json:"notes"`
	IsOpen bool          `json:"is_open"`
	Draft  string        `json:"draft"`
}

// NewWidget creates a closed widget with an empty draft.
func NewWidget(store *Store) *Widget {
	return &Widget{store: store}
}

// AddNote saves content, opens the widget and clears a matching draft.
func (w *Widget) AddNote(ctx context.Context, content, source string) (domain.Note, error) {
	note, err := w.store.Add(ctx, content, source)
	if err != nil {
		return domain.Note{}, err
	}
	w.isOpen = true
	if w.draft == content {
		w.draft = ""
	}
	return note, nil
}

// DeleteNote removes a note by id.
func (w *Widget) DeleteNote(ctx context.Context, id string) error {
	return w.store.Delete(ctx, id)
}

// ToggleOpen flips the open flag and returns the new value.
func (w *Widget) ToggleOpen() bool {
	w.isOpen = !w.isOpen
	return w.isOpen
}

// OpenWithDraft replaces the draft and opens the widget.
func (w *Widget) OpenWithDraft(text string) {
	w.draft = text
	w.isOpen = true
}

// SetDraft replaces the draft text.
func (w *Widget) SetDraft(text string) {
	w.draft = text
}

// Draft returns the current draft text.
func (w *Widget) Draft() string {
	return w.draft
}

// IsOpen reports whether the widget is open.
func (w *Widget) IsOpen() bool {
	return w.isOpen
}

// Snapshot renders the widget for the client.
func (w *Widget) Snapshot(ctx context.Context) (WidgetView, error) {
	list, err := w.store.List(ctx)
	if err != nil {
		return WidgetView{}, err
	}
	return WidgetView{Notes: list, IsOpen: w.isOpen, Draft: w.draft}, nil
}
