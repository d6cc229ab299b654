package flows

import (
	"context"
	"errors"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"

	"github.com/fundn3xus/sessionauth/jwt"
	"github.com/fundn3xus/sessionauth/session"
)

// VerifyFailureKind classifies verification failures. Callers collapse every
// kind into the same "not valid" answer; the kind only feeds metrics and logs.
type VerifyFailureKind int

const (
	VerifyFailureNone VerifyFailureKind = iota
	VerifyFailureInvalidToken
	VerifyFailureExpired
	VerifyFailureSessionNotFound
	VerifyFailureBackend
)

// VerifyResult carries the claims of a live session or the failure kind.
type VerifyResult struct {
	Failure VerifyFailureKind
	Err     error
	Claims  *jwt.Claims
}

// VerifySessionStore is the session table access RunVerify needs.
type VerifySessionStore interface {
	Touch(ctx context.Context, sessionID string, at time.Time) error
}

// VerifyDeps captures verification dependencies.
type VerifyDeps struct {
	ParseToken   func(string) (*jwt.Claims, error)
	Now          func() time.Time
	SessionStore VerifySessionStore
}

// RunVerify checks the token and then requires its session to still exist.
// A present session has its LastActivity advanced in the same store call.
func RunVerify(ctx context.Context, token string, deps VerifyDeps) VerifyResult {
	claims, err := deps.ParseToken(token)
	if err != nil {
		if errors.Is(err, gjwt.ErrTokenExpired) {
			return VerifyResult{Failure: VerifyFailureExpired, Err: err}
		}
		return VerifyResult{Failure: VerifyFailureInvalidToken, Err: err}
	}

	if err := deps.SessionStore.Touch(ctx, claims.SessionID, deps.Now()); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return VerifyResult{Failure: VerifyFailureSessionNotFound, Err: err, Claims: claims}
		}
		return VerifyResult{Failure: VerifyFailureBackend, Err: err, Claims: claims}
	}

	return VerifyResult{Claims: claims}
}
