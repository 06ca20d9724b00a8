package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"ai_enabled": h.aiEnabled,
	})
}

// ListStories returns the story catalog.
func (h *Handler) ListStories(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"stories": h.catalog.List(),
	})
}

// GetStory returns one story.
func (h *Handler) GetStory(w http.ResponseWriter, r *http.Request) {
	story, err := h.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, story)
}

// GetWorkspace returns the caller's full view state.
func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	view, err := h.workspace(r).Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, view)
}

type selectStoryRequest struct {
	StoryID string `json:"story_id"`
}

// SelectStory switches the current story and returns the reset workspace.
func (h *Handler) SelectStory(w http.ResponseWriter, r *http.Request) {
	var req selectStoryRequest
	if !decode(w, r, &req) {
		return
	}

	ws := h.workspace(r)
	if _, err := ws.SelectStory(req.StoryID); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	view, err := ws.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, view)
}
