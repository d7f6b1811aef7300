package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/Phelioume11/SymfonProject/internal/api/auth"
	"github.com/Phelioume11/SymfonProject/internal/api/book"
)

// Config contains dependencies needed for the router setup.
type Config struct {
	AuthHandler *auth.AuthHandler
	BookHandler *book.HandlerImpl

	// Authenticate rejects requests without a valid access token.
	// AuthenticateOptional parses one when present but lets anonymous
	// requests through, so public pages can adapt to the viewer.
	Authenticate         func(http.Handler) http.Handler
	AuthenticateOptional func(http.Handler) http.Handler
}

// SetupRouter wires all application routes. Server-wide middleware
// (request ID, logging, recoverer) is applied in main.go before this
// router is mounted.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	// Stored cover images. Public, like the catalogue itself.
	r.Get("/covers/{filename}", cfg.BookHandler.ServeCover)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.RefreshSession)

			r.Get("/genres", cfg.BookHandler.Genres)
			r.Get("/books", cfg.BookHandler.List)
		})

		// Public with optional identity: the detail page reports whether
		// the viewer may edit the record.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateOptional)
			r.Get("/books/{slug}", cfg.BookHandler.Show)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)

			r.Post("/auth/logout", cfg.AuthHandler.Logout)
			r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

			r.Get("/books/my", cfg.BookHandler.MyBooks)
			r.Post("/books", cfg.BookHandler.Create)
			r.Put("/books/{slug}", cfg.BookHandler.Update)
			r.Delete("/books/{slug}", cfg.BookHandler.Delete)
		})
	})

	return r
}
