package api

import (
	"net/http"
	"strings"
)

// VisualizeHero runs the banner pipeline for the current story. The call
// blocks until the video and narration are ready or the client goes away.
func (h *Handler) VisualizeHero(w http.ResponseWriter, r *http.Request) {
	state, err := h.workspace(r).VisualizeHero(r.Context(), nil)
	if err != nil {
		writeError(w, r, err, http.StatusBadGateway)
		return
	}
	JSON(w, http.StatusOK, state)
}

type visualizeRequest struct {
	Text string `json:"text"`
}

// VisualizeInsight runs the companion pipeline for a piece of text.
func (h *Handler) VisualizeInsight(w http.ResponseWriter, r *http.Request) {
	var req visualizeRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		Error(w, http.StatusBadRequest, "text is required")
		return
	}

	state, err := h.workspace(r).VisualizeInsight(r.Context(), req.Text, nil)
	if err != nil {
		writeError(w, r, err, http.StatusBadGateway)
		return
	}
	JSON(w, http.StatusOK, state)
}

// GetVisualization returns the insight visualization, or 204 when none is showing.
func (h *Handler) GetVisualization(w http.ResponseWriter, r *http.Request) {
	state, ok := h.workspace(r).Visualization()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	JSON(w, http.StatusOK, state)
}

// CloseVisualization discards the insight visualization.
func (h *Handler) CloseVisualization(w http.ResponseWriter, r *http.Request) {
	h.workspace(r).CloseVisualization()
	w.WriteHeader(http.StatusNoContent)
}
