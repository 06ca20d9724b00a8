package api

import (
	"net/http"
	"strconv"

	"github.com/ashureev/scripture-companion/internal/chat"
	"github.com/go-chi/chi/v5"
)

type sendChatRequest struct {
	Message     string           `json:"message"`
	QuickPrompt chat.QuickPrompt `json:"quick_prompt"`
}

// GetChat returns the conversation.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	session := h.workspace(r).Chat()
	JSON(w, http.StatusOK, map[string]interface{}{
		"messages": session.Messages(),
		"busy":     session.Busy(),
		"speaking": session.Speaking(),
	})
}

// SendChat sends a message or quick prompt and returns the reply.
func (h *Handler) SendChat(w http.ResponseWriter, r *http.Request) {
	var req sendChatRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := withTimeout(r.Context(), h.timeouts.Chat)
	defer cancel()

	session := h.workspace(r).Chat()
	var err error
	if req.QuickPrompt != "" {
		_, err = session.SendQuickPrompt(ctx, req.QuickPrompt)
	} else {
		_, err = session.Send(ctx, req.Message)
	}
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"messages": session.Messages(),
	})
}

func messageIndex(r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	return idx, err == nil
}

// SpeakMessage narrates a companion reply and returns the clip.
func (h *Handler) SpeakMessage(w http.ResponseWriter, r *http.Request) {
	idx, ok := messageIndex(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid message index")
		return
	}

	ctx, cancel := withTimeout(r.Context(), h.timeouts.Speech)
	defer cancel()

	clip, err := h.workspace(r).Chat().Speak(ctx, idx)
	if err != nil {
		writeError(w, r, err, http.StatusBadGateway)
		return
	}
	JSON(w, http.StatusOK, clip)
}

// SaveInsight saves a companion reply to notes.
func (h *Handler) SaveInsight(w http.ResponseWriter, r *http.Request) {
	idx, ok := messageIndex(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid message index")
		return
	}

	note, err := h.workspace(r).SaveInsight(r.Context(), idx)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusCreated, note)
}
