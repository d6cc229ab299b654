package sessionauth

import "time"

// Role is the coarse authorization tier carried in access tokens.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdvisor Role = "advisor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role. The empty role is valid and means
// "not asserted".
func (r Role) Valid() bool {
	switch r {
	case "", RoleUser, RoleAdvisor, RoleAdmin:
		return true
	default:
		return false
	}
}

// Subject identifies the principal a token pair is issued for.
type Subject struct {
	UserID string
	Email  string
	Role   Role
}

// TokenPair is the result of a successful Issue.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"-"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`
}

// SessionInfo is the read-only view of a session returned by Sessions.
type SessionInfo struct {
	SessionID    string    `json:"sessionId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}
