package sessionauth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/fundn3xus/sessionauth/internal/audit"
	"github.com/fundn3xus/sessionauth/internal/flows"
	"github.com/fundn3xus/sessionauth/jwt"
	"github.com/fundn3xus/sessionauth/session"
)

// Manager issues, verifies, refreshes and revokes session tokens.
//
// The session table is authoritative: a token whose session has been removed
// is rejected even when its signature and expiry are valid.
type Manager struct {
	config       Config
	jwtManager   *jwt.Manager
	store        session.Store
	audit        *audit.Dispatcher
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time
	newSessionID func() string
	flows        flows.Deps
}

func (m *Manager) buildFlowDeps() flows.Deps {
	verify := flows.VerifyDeps{
		ParseToken:   m.jwtManager.Parse,
		Now:          m.now,
		SessionStore: m.store,
	}
	return flows.Deps{
		Issue: flows.IssueDeps{
			Now:          m.now,
			NewSessionID: func() string { return m.newSessionID() },
			ValidRole:    func(r string) bool { return Role(r).Valid() },
			SignToken:    m.jwtManager.Issue,
			AccessTTL:    AccessTokenTTL,
			RefreshTTL:   RefreshTokenTTL,
			SessionStore: m.store,
		},
		Verify: verify,
		Refresh: flows.RefreshDeps{
			Verify: func(ctx context.Context, token string) flows.VerifyResult {
				return flows.RunVerify(ctx, token, verify)
			},
			SignToken: m.jwtManager.Issue,
			AccessTTL: AccessTokenTTL,
		},
	}
}

// Close flushes and stops the audit dispatcher.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	if m.audit != nil {
		m.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (m *Manager) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the manager counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

// Issue creates a session for subject and returns its access/refresh pair.
//
// An empty UserID yields ErrUserIDRequired and an unknown role ErrInvalidRole;
// neither signs anything. If the session table cannot record the session the
// error wraps ErrSessionCreationFailed and no tokens are returned.
func (m *Manager) Issue(ctx context.Context, subject Subject) (TokenPair, error) {
	res := flows.RunIssue(ctx, flows.IssueRequest{
		UserID: subject.UserID,
		Email:  subject.Email,
		Role:   string(subject.Role),
	}, m.flows.Issue)

	if res.Failure != flows.IssueFailureNone {
		m.metrics.Inc(MetricIssueFailure)
		var err error
		code := auditErrInternal
		switch res.Failure {
		case flows.IssueFailureMissingUser:
			err = ErrUserIDRequired
			code = auditErrInvalidInput
		case flows.IssueFailureInvalidRole:
			err = ErrInvalidRole
			code = auditErrInvalidInput
		case flows.IssueFailureSign:
			err = errors.Join(ErrTokenSigningFailed, res.Err)
			m.logger.Error("token signing failed", "user_id", subject.UserID, "error", res.Err)
		case flows.IssueFailureStore:
			err = errors.Join(ErrSessionCreationFailed, res.Err)
			code = auditErrUnavailable
			m.metrics.Inc(MetricStoreError)
			m.logger.Warn("session create failed", "user_id", subject.UserID, "error", res.Err)
		}
		m.emitAudit(ctx, auditRecord{
			eventType: AuditEventIssueFailed,
			userID:    subject.UserID,
			sessionID: res.SessionID,
			code:      code,
		})
		return TokenPair{}, err
	}

	m.metrics.Inc(MetricSessionIssued)
	m.emitAudit(ctx, auditRecord{
		eventType: AuditEventSessionIssued,
		success:   true,
		userID:    subject.UserID,
		sessionID: res.SessionID,
		metadata:  roleMetadata(subject.Role),
	})

	return TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		SessionID:    res.SessionID,
		ExpiresIn:    int64(AccessTokenTTL / time.Second),
	}, nil
}

// Verify returns the claims of token if it is well-formed, correctly signed,
// unexpired, issued for this audience and its session still exists. A
// successful call advances the session's LastActivity. Any failure yields
// (nil, false).
func (m *Manager) Verify(ctx context.Context, token string) (*jwt.Claims, bool) {
	if m.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { m.metrics.Observe(MetricVerifyLatency, time.Since(start)) }()
	}

	res := flows.RunVerify(ctx, token, m.flows.Verify)
	if res.Failure != flows.VerifyFailureNone {
		m.recordVerifyFailure(res.Failure, res.Claims, res.Err)
		return nil, false
	}

	m.metrics.Inc(MetricVerifySuccess)
	return res.Claims, true
}

func (m *Manager) recordVerifyFailure(kind flows.VerifyFailureKind, claims *jwt.Claims, err error) {
	switch kind {
	case flows.VerifyFailureExpired:
		m.metrics.Inc(MetricVerifyExpired)
		m.logger.Debug("token rejected", "reason", "expired")
	case flows.VerifyFailureSessionNotFound:
		m.metrics.Inc(MetricVerifySessionNotFound)
		m.logger.Debug("token rejected", "reason", "session_not_found", "session_id", claims.SessionID)
	case flows.VerifyFailureBackend:
		m.metrics.Inc(MetricStoreError)
		m.logger.Warn("session lookup failed", "session_id", claims.SessionID, "error", err)
	default:
		m.metrics.Inc(MetricVerifyInvalidToken)
		m.logger.Debug("token rejected", "reason", "invalid", "error", err)
	}
}

// RefreshAccess exchanges a valid refresh token for a new 15-minute access
// token bound to the same session. Access tokens, and anything else that
// fails Verify, yield ("", false). The refresh token is not rotated.
func (m *Manager) RefreshAccess(ctx context.Context, refreshToken string) (string, bool) {
	res := flows.RunRefresh(ctx, refreshToken, m.flows.Refresh)

	switch res.Failure {
	case flows.RefreshFailureNone:
		m.metrics.Inc(MetricVerifySuccess)
		m.metrics.Inc(MetricRefreshSuccess)
		m.emitAudit(ctx, auditRecord{
			eventType: AuditEventAccessRefreshed,
			success:   true,
			userID:    res.UserID,
			sessionID: res.SessionID,
		})
		return res.AccessToken, true
	case flows.RefreshFailureVerify:
		m.recordVerifyFailure(res.VerifyFailure, &jwt.Claims{SessionID: res.SessionID}, res.Err)
		m.metrics.Inc(MetricRefreshFailure)
		m.emitAudit(ctx, auditRecord{
			eventType: AuditEventRefreshRejected,
			userID:    res.UserID,
			sessionID: res.SessionID,
			code:      verifyAuditCode(res.VerifyFailure),
		})
	case flows.RefreshFailureWrongType:
		m.metrics.Inc(MetricVerifySuccess)
		m.metrics.Inc(MetricRefreshWrongType)
		m.metrics.Inc(MetricRefreshFailure)
		m.emitAudit(ctx, auditRecord{
			eventType: AuditEventRefreshRejected,
			userID:    res.UserID,
			sessionID: res.SessionID,
			code:      auditErrWrongTokenType,
		})
	default:
		m.metrics.Inc(MetricRefreshFailure)
		m.logger.Error("access token signing failed", "session_id", res.SessionID, "error", res.Err)
		m.emitAudit(ctx, auditRecord{
			eventType: AuditEventRefreshRejected,
			userID:    res.UserID,
			sessionID: res.SessionID,
			code:      auditErrInternal,
		})
	}
	return "", false
}

// Invalidate removes sessionID and reports whether a session was removed.
// Invalidating an absent session returns false.
func (m *Manager) Invalidate(ctx context.Context, sessionID string) bool {
	if sessionID == "" {
		return false
	}
	removed, err := m.store.Delete(ctx, sessionID)
	if err != nil {
		m.metrics.Inc(MetricStoreError)
		m.logger.Warn("session delete failed", "session_id", sessionID, "error", err)
		m.emitAudit(ctx, auditRecord{
			eventType: AuditEventSessionInvalidated,
			sessionID: sessionID,
			code:      auditErrUnavailable,
		})
		return false
	}
	if removed {
		m.metrics.Inc(MetricSessionInvalidated)
	}
	m.emitAudit(ctx, auditRecord{
		eventType: AuditEventSessionInvalidated,
		success:   removed,
		sessionID: sessionID,
		code:      notFoundUnless(removed),
	})
	return removed
}

// LogoutByToken verifies token and, if valid, invalidates its session. It
// returns the session ID that was removed.
func (m *Manager) LogoutByToken(ctx context.Context, token string) (string, bool) {
	claims, ok := m.Verify(ctx, token)
	if !ok {
		return "", false
	}
	if !m.Invalidate(ctx, claims.SessionID) {
		return "", false
	}
	return claims.SessionID, true
}

// InvalidateAllForUser removes every session owned by userID and returns how
// many were removed.
func (m *Manager) InvalidateAllForUser(ctx context.Context, userID string) int {
	if userID == "" {
		return 0
	}
	removed, err := m.store.DeleteAllForUser(ctx, userID)
	if err != nil {
		m.metrics.Inc(MetricStoreError)
		m.logger.Warn("bulk session delete failed", "user_id", userID, "error", err)
		m.emitAudit(ctx, auditRecord{
			eventType: AuditEventUserSessionsInvalidated,
			userID:    userID,
			code:      auditErrUnavailable,
		})
		return 0
	}

	m.metrics.Inc(MetricLogoutAll)
	m.metrics.Add(MetricSessionInvalidated, uint64(removed))
	m.emitAudit(ctx, auditRecord{
		eventType: AuditEventUserSessionsInvalidated,
		success:   true,
		userID:    userID,
		count:     removed,
	})
	return removed
}

// SweepExpired removes every session idle for longer than RefreshTokenTTL
// and returns how many were removed. The Manager owns no timer; see the
// sweep package for a scheduler.
func (m *Manager) SweepExpired(ctx context.Context) int {
	cutoff := m.now().Add(-RefreshTokenTTL)
	removed, err := m.store.DeleteIdleBefore(ctx, cutoff)
	m.metrics.Inc(MetricSweepRuns)
	if err != nil {
		m.metrics.Inc(MetricStoreError)
		m.logger.Warn("session sweep failed", "error", err)
		return 0
	}

	m.metrics.Add(MetricSessionsSwept, uint64(removed))
	if removed > 0 {
		m.logger.Info("swept idle sessions", "removed", removed)
		m.emitAudit(ctx, auditRecord{
			eventType: AuditEventSessionsSwept,
			success:   true,
			count:     removed,
			metadata:  map[string]string{"cutoff": strconv.FormatInt(cutoff.Unix(), 10)},
		})
	}
	return removed
}

// CountSessionsForUser returns the number of live sessions owned by userID.
func (m *Manager) CountSessionsForUser(ctx context.Context, userID string) int {
	count, err := m.store.CountForUser(ctx, userID)
	if err != nil {
		m.metrics.Inc(MetricStoreError)
		m.logger.Warn("session count failed", "user_id", userID, "error", err)
		return 0
	}
	return count
}

// Sessions lists the live sessions owned by userID, oldest first.
func (m *Manager) Sessions(ctx context.Context, userID string) []SessionInfo {
	rows, err := m.store.ListForUser(ctx, userID)
	if err != nil {
		m.metrics.Inc(MetricStoreError)
		m.logger.Warn("session list failed", "user_id", userID, "error", err)
		return []SessionInfo{}
	}

	out := make([]SessionInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, SessionInfo{
			SessionID:    row.SessionID,
			CreatedAt:    row.CreatedAt,
			LastActivity: row.LastActivity,
		})
	}
	return out
}

func verifyAuditCode(kind flows.VerifyFailureKind) AuditErrorCode {
	switch kind {
	case flows.VerifyFailureExpired:
		return auditErrExpired
	case flows.VerifyFailureSessionNotFound:
		return auditErrSessionNotFound
	case flows.VerifyFailureBackend:
		return auditErrUnavailable
	default:
		return auditErrInvalidToken
	}
}

func notFoundUnless(ok bool) AuditErrorCode {
	if ok {
		return ""
	}
	return auditErrSessionNotFound
}

func roleMetadata(role Role) map[string]string {
	if role == "" {
		return nil
	}
	return map[string]string{"role": string(role)}
}
