package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/fundn3xus/sessionauth"
	"github.com/fundn3xus/sessionauth/internal/rate"
	"github.com/fundn3xus/sessionauth/internal/users"
	"github.com/fundn3xus/sessionauth/middleware"
)

const maxBodyBytes = 1 << 16

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool                  `json:"success"`
	User    users.Identity        `json:"user"`
	Tokens  sessionauth.TokenPair `json:"tokens"`
}

// Login authenticates email/password and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	ip := clientIP(r)
	if h.limiter != nil {
		if err := h.limiter.ReserveLogin(r.Context(), req.Email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				writeError(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
				return
			}
			h.logger.Warn("login limiter unavailable", "error", err)
			writeError(w, http.StatusServiceUnavailable, "Authentication temporarily unavailable")
			return
		}
	}

	identity, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, users.ErrInvalidCredentials) {
			h.logger.Error("authenticator failed", "error", err)
		}
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if h.limiter != nil {
		if err := h.limiter.ResetLogin(r.Context(), req.Email, ip); err != nil {
			h.logger.Warn("reset login counter", "error", err)
		}
	}

	pair, err := h.sessions.Issue(r.Context(), sessionauth.Subject{
		UserID: identity.ID,
		Email:  identity.Email,
		Role:   identity.Role,
	})
	if err != nil {
		h.logger.Error("issue session failed", "user_id", identity.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}

	h.setCookie(w, AccessCookie, pair.AccessToken, sessionauth.AccessTokenTTL)
	h.setCookie(w, RefreshCookie, pair.RefreshToken, sessionauth.RefreshTokenTTL)
	writeJSON(w, http.StatusOK, loginResponse{Success: true, User: identity, Tokens: pair})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh mints a new access token. The refresh token is read from the
// refresh_token cookie, or from the JSON body when the cookie is absent.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(RefreshCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req refreshRequest
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "Refresh token not provided")
		return
	}

	access, ok := h.sessions.RefreshAccess(r.Context(), token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	h.setCookie(w, AccessCookie, access, sessionauth.AccessTokenTTL)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "accessToken": access})
}

// Logout ends the caller's session if its access token still verifies, and
// always clears both cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		token = c.Value
	} else if t, ok := middleware.TokenFromRequest(r); ok {
		token = t
	}
	if token != "" {
		if sid, ok := h.sessions.LogoutByToken(r.Context(), token); ok {
			h.logger.Debug("session logged out", "session_id", sid)
		}
	}

	h.clearCookie(w, AccessCookie)
	h.clearCookie(w, RefreshCookie)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully"})
}

// LogoutAll ends every session of the authenticated user.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	count := h.sessions.InvalidateAllForUser(r.Context(), claims.UserID)
	h.clearCookie(w, AccessCookie)
	h.clearCookie(w, RefreshCookie)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": count})
}

type sessionView struct {
	sessionauth.SessionInfo
	Current bool `json:"current"`
}

// ListSessions returns the authenticated user's live sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	rows := h.sessions.Sessions(r.Context(), claims.UserID)
	out := make([]sessionView, 0, len(rows))
	for _, s := range rows {
		out = append(out, sessionView{SessionInfo: s, Current: s.SessionID == claims.SessionID})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "sessions": out})
}
