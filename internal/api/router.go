package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Post("/sessions", apiHandler.CreateSessionHandler)

		// Session-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.SessionAuthMiddleware)

			r.Get("/session", apiHandler.GetSessionHandler)
			r.Put("/session/mode", apiHandler.SetModeHandler)
			r.Post("/session/messages", apiHandler.PostMessageHandler)
			r.Get("/session/logs", apiHandler.LogsHandler)
			r.Get("/session/events", apiHandler.EventsHandler)

			r.Get("/artifacts", apiHandler.ListArtifactsHandler)
			r.Post("/artifacts", apiHandler.UploadArtifactsHandler)
			r.Delete("/artifacts", apiHandler.ClearArtifactsHandler)
			r.Post("/artifacts/demo", apiHandler.ImportDemoHandler)
			r.Get("/artifacts/{artifactID}", apiHandler.GetArtifactHandler)
			r.Put("/artifacts/{artifactID}", apiHandler.PutArtifactHandler)
			r.Delete("/artifacts/{artifactID}", apiHandler.DeleteArtifactHandler)

			r.Post("/policy/authorize", apiHandler.AuthorizeHandler)
		})
	})

	return r
}
