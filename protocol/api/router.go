package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter mounts the handler behind request ids, panic recovery, request
// logging and CORS for allowedOrigin.
func NewRouter(h *RESTHandler, allowedOrigin string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if allowedOrigin != "" {
		r.Use(cors.Handler(corsOptions(allowedOrigin)))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	h.RegisterRoutes(r)
	return r
}

// corsOptions lets a browser client served from origin call the API with a
// bearer token. "*" allows any origin.
func corsOptions(origin string) cors.Options {
	return cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}
}
