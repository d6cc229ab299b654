package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps the session table in process memory. Contents are lost
// on restart.
//
// A single mutex covers the table and the per-user index so that every
// read-modify-write runs as one critical section.
type MemoryStore struct {
	mu     sync.Mutex
	byID   map[string]Session
	byUser map[string]map[string]struct{}
}

// NewMemoryStore returns an empty in-memory session table.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]Session),
		byUser: make(map[string]map[string]struct{}),
	}
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, sess Session) error {
	if err := validate(sess); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[sess.SessionID]; ok {
		return ErrAlreadyExists
	}
	m.byID[sess.SessionID] = sess
	ids, ok := m.byUser[sess.UserID]
	if !ok {
		ids = make(map[string]struct{})
		m.byUser[sess.UserID] = ids
	}
	ids[sess.SessionID] = struct{}{}
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, sessionID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.byID[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// Touch implements Store.
func (m *MemoryStore) Touch(_ context.Context, sessionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.byID[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.LastActivity = at
	m.byID[sessionID] = sess
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.deleteLocked(sessionID), nil
}

// DeleteAllForUser implements Store.
func (m *MemoryStore) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.byUser[userID]
	removed := 0
	for id := range ids {
		if m.deleteLocked(id) {
			removed++
		}
	}
	return removed, nil
}

// DeleteIdleBefore implements Store.
func (m *MemoryStore) DeleteIdleBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.byID {
		if sess.LastActivity.Before(cutoff) {
			m.deleteLocked(id)
			removed++
		}
	}
	return removed, nil
}

// CountForUser implements Store.
func (m *MemoryStore) CountForUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.byUser[userID]), nil
}

// ListForUser implements Store.
func (m *MemoryStore) ListForUser(_ context.Context, userID string) ([]Session, error) {
	m.mu.Lock()
	out := make([]Session, 0, len(m.byUser[userID]))
	for id := range m.byUser[userID] {
		out = append(out, m.byID[id])
	}
	m.mu.Unlock()

	sortByCreated(out)
	return out, nil
}

// Len returns the total number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *MemoryStore) deleteLocked(sessionID string) bool {
	sess, ok := m.byID[sessionID]
	if !ok {
		return false
	}
	delete(m.byID, sessionID)
	if ids, ok := m.byUser[sess.UserID]; ok {
		delete(ids, sessionID)
		if len(ids) == 0 {
			delete(m.byUser, sess.UserID)
		}
	}
	return true
}

func sortByCreated(sessions []Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].SessionID < sessions[j].SessionID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
