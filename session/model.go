package session

import "time"

// Session is one row of the session table. A session exists from the moment
// a token pair is issued until it is invalidated or swept.
type Session struct {
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// IdleFor reports how long the session has been idle at now.
func (s Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}
