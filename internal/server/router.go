package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(handler *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if handler.metrics != nil {
		r.Use(handler.metrics.Middleware)
	}

	// Register routes
	handler.RegisterRoutes(r)

	return r
}
