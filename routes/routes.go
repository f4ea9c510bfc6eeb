package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/llm-arena/app"
	"github.com/upb/llm-arena/handlers"
	"github.com/upb/llm-arena/middleware"
	"github.com/upb/llm-arena/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))
	r.Use(chimw.Recoverer)
	// provider calls are bounded individually; this only guards the whole request
	r.Use(chimw.Timeout(deps.Config.Generation.RequestTimeout + 30*time.Second))

	origins := deps.Config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "https://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.Repositories.Health, deps.Registry, deps.Logger)
	arena := handlers.NewArenaHandler(deps.Aggregator, deps.Registry, deps.Credentials, deps.Logger)
	votes := handlers.NewVoteHandler(deps.Votes, deps.Logger)
	history := handlers.NewHistoryHandler(deps.History, deps.Logger)
	diagnostics := handlers.NewDiagnosticsHandler(deps.Diagnostics, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Diagnostics
	r.Get("/test-connections", diagnostics.HandleTestConnections)
	r.Get("/test-api-keys", diagnostics.HandleTestAPIKeys)

	// Browser-facing routes carry the session cookie
	r.Group(func(r chi.Router) {
		r.Use(deps.Sessions.Middleware)

		r.Post("/vote", votes.HandleVote)
		r.Post("/export", arena.HandleExport)
		r.Get("/share/{response_id}", history.HandleShare)
		r.Get("/view-responses/{session_id}", history.HandleGet)

		r.Route("/api", func(r chi.Router) {
			r.Get("/providers", arena.HandleProviders)
			r.Post("/ask", arena.HandleAsk)
			r.Get("/votes", votes.HandleListVotes)
			r.Post("/save-history", history.HandleSave)
			r.Get("/get-history", history.HandleList)
			r.Get("/get-response-data/{session_id}", history.HandleGet)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
