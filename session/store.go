package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no session exists for the given ID.
	ErrNotFound = errors.New("session not found")
	// ErrAlreadyExists is returned by Create when the session ID is taken.
	ErrAlreadyExists = errors.New("session already exists")
	// ErrRedisUnavailable wraps transport failures from the Redis backend.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrInvalidSession is returned by Create for rows missing an ID or owner.
	ErrInvalidSession = errors.New("invalid session")
)

// Store is the session table contract. Every mutation is atomic with respect
// to concurrent callers on the same store.
type Store interface {
	// Create inserts a new row.
	Create(ctx context.Context, sess Session) error
	// Get returns the row for sessionID or ErrNotFound.
	Get(ctx context.Context, sessionID string) (Session, error)
	// Touch sets LastActivity to at and returns ErrNotFound if the row is gone.
	Touch(ctx context.Context, sessionID string, at time.Time) error
	// Delete removes the row and reports whether it existed.
	Delete(ctx context.Context, sessionID string) (bool, error)
	// DeleteAllForUser removes every row owned by userID.
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
	// DeleteIdleBefore removes rows whose LastActivity is strictly before cutoff.
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int, error)
	// CountForUser returns the number of rows owned by userID.
	CountForUser(ctx context.Context, userID string) (int, error)
	// ListForUser returns the rows owned by userID, oldest first.
	ListForUser(ctx context.Context, userID string) ([]Session, error)
}

func validate(sess Session) error {
	if sess.SessionID == "" || sess.UserID == "" {
		return ErrInvalidSession
	}
	return nil
}
