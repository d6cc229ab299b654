package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fundn3xus/sessionauth/middleware"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Sessions      Sessions
	Authenticator Authenticator
	// LoginLimiter throttles failed logins when set.
	LoginLimiter   LoginLimiter
	AllowedOrigins []string
	SecureCookies  bool
	// Metrics is mounted on GET /metrics when set.
	Metrics http.Handler
	// Health reports backend reachability for GET /health. Nil means always healthy.
	Health func(ctx context.Context) error
	// AccessLog enables chi's request logger.
	AccessLog bool
	Logger    *slog.Logger
}

// NewRouter builds the HTTP surface.
func NewRouter(opts RouterOptions) http.Handler {
	h := NewHandler(opts.Sessions, opts.Authenticator, opts.LoginLimiter, opts.SecureCookies, opts.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	if opts.AccessLog {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.ClientIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(opts.Sessions))
			r.Post("/logout-all", h.LogoutAll)
			r.Get("/sessions", h.ListSessions)
		})
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Health(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
