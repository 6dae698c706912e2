package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"gemini-chat/internal/handlers"
	"gemini-chat/internal/middleware"
	"gemini-chat/internal/websocket"
)

func New(
	chatHandler *handlers.ChatHandler,
	streamHub *websocket.Hub,
	chatLimiter middleware.Limiter,
	frontendURL string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", handlers.Health)

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(middleware.RateLimit(chatLimiter, logger))
		r.Post("/", chatHandler.Chat)
		r.Get("/stream", streamHub.HandleStream)
	})

	return r
}
