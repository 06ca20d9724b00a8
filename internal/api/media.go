package api

import (
	"net/http"

	"github.com/ashureev/scripture-companion/internal/media"
	"github.com/go-chi/chi/v5"
)

// ServeAudio streams a narration clip.
func (h *Handler) ServeAudio(w http.ResponseWriter, r *http.Request) {
	h.serveClip(w, r, media.KindAudio, "audio/wav")
}

// ServeVideo streams a scene video.
func (h *Handler) ServeVideo(w http.ResponseWriter, r *http.Request) {
	h.serveClip(w, r, media.KindVideo, "video/mp4")
}

func (h *Handler) serveClip(w http.ResponseWriter, r *http.Request, kind media.Kind, contentType string) {
	path, err := h.media.Path(kind, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, path)
}
