package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studyroom-backend/internal/handlers"
	"studyroom-backend/internal/middleware"
	"studyroom-backend/internal/websocket"
)

// New wires the HTTP surface. ctx bounds the rate limiter's cleanup loop.
func New(
	ctx context.Context,
	jwtAuth *middleware.JWTAuth,
	studyMaterialHandler *handlers.StudyMaterialHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Generation is the expensive path: 10 creates per user per minute
	generationLimiter := middleware.NewRateLimiter(ctx, 10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Study Material Routes ────
		r.Route("/study-materials", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.Group(func(r chi.Router) {
				r.Use(generationLimiter.Middleware)
				r.Post("/", studyMaterialHandler.Create)
				r.Post("/upload", studyMaterialHandler.Upload)
			})

			r.Get("/", studyMaterialHandler.List)
			r.Get("/{id}", studyMaterialHandler.Get)
			r.Put("/{id}", studyMaterialHandler.Update)
			r.Delete("/{id}", studyMaterialHandler.Delete)
			r.Post("/{id}/quiz/score", studyMaterialHandler.ScoreQuiz)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
