// Package httpapi exposes the session lifecycle over HTTP: login, refresh,
// logout and session listing, with tokens delivered as JSON and as httpOnly
// cookies.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fundn3xus/sessionauth"
	"github.com/fundn3xus/sessionauth/internal/users"
	"github.com/fundn3xus/sessionauth/jwt"
)

// Cookie names.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// Sessions is the subset of *sessionauth.Manager the routes use.
type Sessions interface {
	Issue(ctx context.Context, subject sessionauth.Subject) (sessionauth.TokenPair, error)
	Verify(ctx context.Context, token string) (*jwt.Claims, bool)
	RefreshAccess(ctx context.Context, refreshToken string) (string, bool)
	LogoutByToken(ctx context.Context, token string) (string, bool)
	InvalidateAllForUser(ctx context.Context, userID string) int
	Sessions(ctx context.Context, userID string) []sessionauth.SessionInfo
}

// Authenticator checks login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (users.Identity, error)
}

// LoginLimiter throttles logins. ReserveLogin counts the attempt before the
// password is checked; ResetLogin gives it back on success.
// *rate.RedisLimiter and *rate.MemoryLimiter satisfy it.
type LoginLimiter interface {
	ReserveLogin(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
}

// Handler holds the auth route handlers.
type Handler struct {
	sessions      Sessions
	auth          Authenticator
	limiter       LoginLimiter
	secureCookies bool
	logger        *slog.Logger
}

// NewHandler builds the route handlers. limiter may be nil.
func NewHandler(sessions Sessions, auth Authenticator, limiter LoginLimiter, secureCookies bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:      sessions,
		auth:          auth,
		limiter:       limiter,
		secureCookies: secureCookies,
		logger:        logger.With("component", "httpapi"),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
