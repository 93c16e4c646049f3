package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lexora-ai/lexora/internal/api"
	"github.com/lexora-ai/lexora/internal/api/handlers"
	"github.com/lexora-ai/lexora/internal/api/middleware"
)

type RouterConfig struct {
	UserLookup      middleware.UserLookup
	DocumentHandler *handlers.DocumentHandler
	ChatHandler     *handlers.ChatHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Uploads carry whole source files; everything else is small JSON.
	const maxBodyBytes int64 = 25 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.UserAuth(cfg.UserLookup))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.UploadText)
			r.Post("/file", cfg.DocumentHandler.UploadFile)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
			r.Post("/{id}/reingest", cfg.DocumentHandler.Reingest)
		})

		r.Post("/chat", cfg.ChatHandler.SendMessage)
		r.Post("/query", cfg.ChatHandler.Query)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", cfg.ChatHandler.ListConversations)
			r.Get("/{id}", cfg.ChatHandler.GetConversation)
			r.Delete("/{id}", cfg.ChatHandler.DeleteConversation)
			r.Post("/{id}/pin", cfg.ChatHandler.PinConversation)
		})
	})

	return r
}
