package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetNotes returns the notes widget.
func (h *Handler) GetNotes(w http.ResponseWriter, r *http.Request) {
	view, err := h.workspace(r).Notes(r.Context())
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, view)
}

type addNoteRequest struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// AddNote saves a note.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req addNoteRequest
	if !decode(w, r, &req) {
		return
	}

	note, err := h.workspace(r).AddNote(r.Context(), req.Content, req.Source)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusCreated, note)
}

// DeleteNote removes a note.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.workspace(r).DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleNotes opens or closes the widget.
func (h *Handler) ToggleNotes(w http.ResponseWriter, r *http.Request) {
	view, err := h.workspace(r).ToggleNotes(r.Context())
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, view)
}

type draftRequest struct {
	Draft string `json:"draft"`
}

// SetDraft replaces the draft text.
func (h *Handler) SetDraft(w http.ResponseWriter, r *http.Request) {
	h.draft(w, r, false)
}

// OpenDraft replaces the draft text and opens the widget.
func (h *Handler) OpenDraft(w http.ResponseWriter, r *http.Request) {
	h.draft(w, r, true)
}

func (h *Handler) draft(w http.ResponseWriter, r *http.Request, open bool) {
	var req draftRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.workspace(r).SetDraft(r.Context(), req.Draft, open)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, view)
}
