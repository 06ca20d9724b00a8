package api

import (
	"net/http"

	"github.com/ashureev/scripture-companion/internal/quiz"
)

// GetQuiz returns the quiz view.
func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.workspace(r).Quiz())
}

// StartQuiz generates questions. A failed generation leaves the quiz idle
// and is reported as a bad gateway.
func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context(), h.timeouts.Quiz)
	defer cancel()

	view, err := h.workspace(r).StartQuiz(ctx)
	if err != nil {
		writeError(w, r, err, http.StatusBadGateway)
		return
	}
	if view.State == quiz.StateIdle {
		Error(w, http.StatusBadGateway, "no questions could be generated")
		return
	}
	JSON(w, http.StatusOK, view)
}

type answerRequest struct {
	Option *int `json:"option"`
}

// AnswerQuiz records the option for the current question.
func (h *Handler) AnswerQuiz(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Option == nil {
		Error(w, http.StatusBadRequest, "option is required")
		return
	}

	view, err := h.workspace(r).AnswerQuiz(*req.Option)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, view)
}

// NextQuestion advances the quiz.
func (h *Handler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	view, err := h.workspace(r).NextQuestion()
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, view)
}

// RetakeQuiz resets a finished quiz.
func (h *Handler) RetakeQuiz(w http.ResponseWriter, r *http.Request) {
	view, err := h.workspace(r).RetakeQuiz()
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, view)
}
