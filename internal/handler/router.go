package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/snipvault/snipvault/internal/middleware"
)

// RouterConfig collects the handlers and middleware settings served by
// NewRouter.
type RouterConfig struct {
	Logger *slog.Logger

	Health   *HealthHandler
	Metrics  *MetricsHandler
	Auth     *AuthHandler
	Folders  *FolderHandler
	Snippets *SnippetHandler

	Session     middleware.AuthConfig
	Security    middleware.SecurityConfig
	CORS        middleware.CORSConfig
	MaxBodySize int64
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	h := New()
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))

	// Probes and metrics (no auth required)
	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Healthz)
		r.Get("/readyz", cfg.Health.Readyz)
	}
	if cfg.Metrics != nil {
		r.Get("/metrics", cfg.Metrics.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		if cfg.MaxBodySize > 0 {
			r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
		}

		// Logout never resolves the session.
		r.Post("/auth/logout", cfg.Auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Session))

			r.Post("/auth/register", cfg.Auth.Register)
			r.Post("/auth/login", cfg.Auth.Login)
			r.With(middleware.RequireUser).Get("/auth/me", cfg.Auth.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Session))
			r.Use(middleware.RequireUser)

			r.Route("/folders", func(r chi.Router) {
				r.Get("/", cfg.Folders.List)
				r.Post("/", cfg.Folders.Create)
				r.Delete("/{id}", cfg.Folders.Delete)
			})

			r.Route("/snippets", func(r chi.Router) {
				r.Get("/", cfg.Snippets.List)
				r.Post("/", cfg.Snippets.Create)
				r.Get("/{id}", cfg.Snippets.Get)
				r.Delete("/{id}", cfg.Snippets.Delete)
			})
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
