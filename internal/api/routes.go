package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the API routes. aiLimit, if non-nil, wraps the
// endpoints that call the generative service.
func (h *Handler) RegisterRoutes(r chi.Router, aiLimit func(http.Handler) http.Handler) {
	if aiLimit == nil {
		aiLimit = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.GetConfig)

		r.Get("/stories", h.ListStories)
		r.Get("/stories/{id}", h.GetStory)

		r.Get("/workspace", h.GetWorkspace)
		r.Put("/workspace/story", h.SelectStory)

		r.Get("/chat", h.GetChat)
		r.Post("/chat/{index}/save", h.SaveInsight)

		r.Get("/quiz", h.GetQuiz)
		r.Post("/quiz/answer", h.AnswerQuiz)
		r.Post("/quiz/next", h.NextQuestion)
		r.Post("/quiz/retake", h.RetakeQuiz)

		r.Get("/visualization", h.GetVisualization)
		r.Delete("/visualization", h.CloseVisualization)

		r.Get("/notes", h.GetNotes)
		r.Post("/notes", h.AddNote)
		r.Delete("/notes/{id}", h.DeleteNote)
		r.Post("/notes/toggle", h.ToggleNotes)
		r.Put("/notes/draft", h.SetDraft)
		r.Post("/notes/draft/open", h.OpenDraft)

		r.Post("/visits", h.RecordVisit)

		r.Get("/audio/{id}", h.ServeAudio)
		r.Get("/media/{id}", h.ServeVideo)

		r.Group(func(r chi.Router) {
			r.Use(aiLimit)
			r.Post("/chat", h.SendChat)
			r.Post("/chat/{index}/speak", h.SpeakMessage)
			r.Post("/quiz/start", h.StartQuiz)
			r.Post("/hero/visualize", h.VisualizeHero)
			r.Post("/visualization", h.VisualizeInsight)
		})
	})
}
