package flows

import (
	"context"
	"time"

	"github.com/fundn3xus/sessionauth/jwt"
)

// RefreshFailureKind classifies refresh failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureVerify
	RefreshFailureWrongType
	RefreshFailureSign
)

// RefreshResult carries the new access token or failure metadata.
type RefreshResult struct {
	Failure       RefreshFailureKind
	VerifyFailure VerifyFailureKind
	Err           error
	UserID        string
	SessionID     string
	AccessToken   string
}

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	Verify    func(context.Context, string) VerifyResult
	SignToken func(jwt.TokenSpec) (string, error)
	AccessTTL time.Duration
}

// RunRefresh exchanges a live refresh token for a new access token bound to
// the same session. The refresh token itself is neither rotated nor revoked.
// The new access token carries only the user and session identifiers.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	verified := deps.Verify(ctx, refreshToken)
	if verified.Failure != VerifyFailureNone {
		res := RefreshResult{Failure: RefreshFailureVerify, VerifyFailure: verified.Failure, Err: verified.Err}
		if verified.Claims != nil {
			res.UserID = verified.Claims.UserID
			res.SessionID = verified.Claims.SessionID
		}
		return res
	}

	claims := verified.Claims
	if claims.Type != jwt.TypeRefresh {
		return RefreshResult{
			Failure:   RefreshFailureWrongType,
			UserID:    claims.UserID,
			SessionID: claims.SessionID,
		}
	}

	access, err := deps.SignToken(jwt.TokenSpec{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Type:      jwt.TypeAccess,
		TTL:       deps.AccessTTL,
	})
	if err != nil {
		return RefreshResult{
			Failure:   RefreshFailureSign,
			Err:       err,
			UserID:    claims.UserID,
			SessionID: claims.SessionID,
		}
	}

	return RefreshResult{
		UserID:      claims.UserID,
		SessionID:   claims.SessionID,
		AccessToken: access,
	}
}
