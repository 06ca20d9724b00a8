// Package api provides HTTP handlers for the companion API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/scripture-companion/internal/chat"
	"github.com/ashureev/scripture-companion/internal/config"
	"github.com/ashureev/scripture-companion/internal/gemini"
	"github.com/ashureev/scripture-companion/internal/identity"
	"github.com/ashureev/scripture-companion/internal/media"
	"github.com/ashureev/scripture-companion/internal/notes"
	"github.com/ashureev/scripture-companion/internal/notify"
	"github.com/ashureev/scripture-companion/internal/quiz"
	"github.com/ashureev/scripture-companion/internal/stories"
	"github.com/ashureev/scripture-companion/internal/visualize"
	"github.com/ashureev/scripture-companion/internal/workspace"
)

const maxBodyBytes = 64 << 10

// MediaLocator resolves clip handles to files.
type MediaLocator interface {
	Path(kind media.Kind, id string) (string, error)
}

// Handler provides common handler utilities.
type Handler struct {
	catalog    *stories.Catalog
	workspaces *workspace.Manager
	media      MediaLocator
	notifier   *notify.Notifier
	aiEnabled  bool
	timeouts   config.TimeoutConfig
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(catalog *stories.Catalog, workspaces *workspace.Manager, locator MediaLocator, notifier *notify.Notifier, cfg *config.Config) *Handler {
	return &Handler{
		catalog:    catalog,
		workspaces: workspaces,
		media:      locator,
		notifier:   notifier,
		aiEnabled:  cfg.AIEnabled(),
		timeouts:   cfg.Timeout,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decode reads a bounded JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// workspace returns the caller's workspace.
func (h *Handler) workspace(r *http.Request) *workspace.Workspace {
	ctx := r.Context()
	return h.workspaces.Get(identity.UserIDFromContext(ctx), identity.SessionIDFromContext(ctx))
}

// withTimeout bounds a request-scoped AI call. A zero timeout leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, stories.ErrNotFound),
		errors.Is(err, notes.ErrNotFound),
		errors.Is(err, chat.ErrNoMessage),
		errors.Is(err, media.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrUnknownQuickPrompt),
		errors.Is(err, chat.ErrNotModelMessage),
		errors.Is(err, notes.ErrEmptyContent),
		errors.Is(err, quiz.ErrInvalidOption):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrBusy),
		errors.Is(err, chat.ErrStale),
		errors.Is(err, quiz.ErrInvalidTransition),
		errors.Is(err, quiz.ErrUnanswered),
		errors.Is(err, visualize.ErrInFlight),
		errors.Is(err, visualize.ErrDiscarded),
		errors.Is(err, workspace.ErrStale):
		return http.StatusConflict
	case errors.Is(err, gemini.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return fallback
}

// writeError logs err and writes it with the mapped status.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback int) {
	status := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed",
			"path", r.URL.Path,
			"user_id", identity.UserIDFromContext(r.Context()),
			"session_id", identity.SessionIDFromContext(r.Context()),
			"error", err)
	}
	Error(w, status, err.Error())
}
