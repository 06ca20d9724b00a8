package api

import (
	"net/http"

	"github.com/ashureev/scripture-companion/internal/identity"
	"github.com/ashureev/scripture-companion/internal/notify"
)

// RecordVisit announces the visit in the background and returns at once.
func (h *Handler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	var info notify.ClientInfo
	if !decode(w, r, &info) {
		return
	}
	if info.UserAgent == "" {
		info.UserAgent = r.UserAgent()
	}
	if info.Referrer == "" {
		info.Referrer = r.Referer()
	}

	ctx := r.Context()
	h.notifier.Dispatch(ctx, identity.UserIDFromContext(ctx), identity.SessionIDFromContext(ctx), info)
	JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
