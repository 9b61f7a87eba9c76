package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sagelearn/sage-api/internal/api"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	queryHandler := api.NewQueryHandler(app.queryService)
	healthHandler := api.NewHealthHandler(app.scheduler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/queries", queryHandler.CreateQuery)

		r.Get("/jobs/{id}", queryHandler.GetJob)

		r.Get("/queries/{id}/related-questions", queryHandler.GetRelatedQuestions)
		r.Get("/queries/{id}/lessons", queryHandler.GetLessons)
		r.Get("/queries/{id}/flashcards", queryHandler.ListFlashcards)
		r.Get("/queries/{id}/lessons/{index}/flashcards", queryHandler.GetFlashcards)
		r.Get("/queries/{id}/lessons/{index}/quiz", queryHandler.GetQuiz)

		r.Get("/lessons/recent", queryHandler.ListRecentLessons)
		r.Get("/related-questions/recent", queryHandler.ListRecentRelatedQuestions)
		r.Get("/flashcards/recent", queryHandler.ListRecentFlashcards)

		r.Get("/health", healthHandler.GetHealth)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
