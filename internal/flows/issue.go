package flows

import (
	"context"
	"time"

	"github.com/fundn3xus/sessionauth/jwt"
	"github.com/fundn3xus/sessionauth/session"
)

// IssueFailureKind classifies issuance failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureMissingUser
	IssueFailureInvalidRole
	IssueFailureSign
	IssueFailureStore
)

// IssueRequest is the subject a pair is minted for.
type IssueRequest struct {
	UserID string
	Email  string
	Role   string
}

// IssueResult carries the new pair or failure metadata.
type IssueResult struct {
	Failure      IssueFailureKind
	Err          error
	SessionID    string
	AccessToken  string
	RefreshToken string
}

// IssueSessionStore is the session table access RunIssue needs.
type IssueSessionStore interface {
	Create(ctx context.Context, sess session.Session) error
}

// IssueDeps captures issuance dependencies.
type IssueDeps struct {
	Now          func() time.Time
	NewSessionID func() string
	ValidRole    func(string) bool
	SignToken    func(jwt.TokenSpec) (string, error)
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	SessionStore IssueSessionStore
}

// RunIssue validates the request, signs both tokens and then records the
// session. The clock is read once and both tokens and the row share that
// instant. Tokens are signed first so that a signing failure never leaves an
// orphan row behind; a store failure discards tokens that could not verify
// anyway.
func RunIssue(ctx context.Context, req IssueRequest, deps IssueDeps) IssueResult {
	if req.UserID == "" {
		return IssueResult{Failure: IssueFailureMissingUser}
	}
	if deps.ValidRole != nil && !deps.ValidRole(req.Role) {
		return IssueResult{Failure: IssueFailureInvalidRole}
	}

	sessionID := deps.NewSessionID()
	now := deps.Now()

	access, err := deps.SignToken(jwt.TokenSpec{
		UserID:    req.UserID,
		Email:     req.Email,
		Role:      req.Role,
		SessionID: sessionID,
		Type:      jwt.TypeAccess,
		TTL:       deps.AccessTTL,
		IssuedAt:  now,
	})
	if err != nil {
		return IssueResult{Failure: IssueFailureSign, Err: err, SessionID: sessionID}
	}

	refresh, err := deps.SignToken(jwt.TokenSpec{
		UserID:    req.UserID,
		SessionID: sessionID,
		Type:      jwt.TypeRefresh,
		TTL:       deps.RefreshTTL,
		IssuedAt:  now,
	})
	if err != nil {
		return IssueResult{Failure: IssueFailureSign, Err: err, SessionID: sessionID}
	}

	if err := deps.SessionStore.Create(ctx, session.Session{
		SessionID:    sessionID,
		UserID:       req.UserID,
		CreatedAt:    now,
		LastActivity: now,
	}); err != nil {
		return IssueResult{Failure: IssueFailureStore, Err: err, SessionID: sessionID}
	}

	return IssueResult{
		SessionID:    sessionID,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
