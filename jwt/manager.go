package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes short-lived access tokens from refresh tokens.
// It is carried in the "type" claim.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// MinSecretLen is the smallest HMAC secret NewManager accepts.
const MinSecretLen = 32

var (
	// ErrMissingSecret is returned by NewManager when no signing secret is configured.
	ErrMissingSecret = errors.New("jwt: signing secret is required")
	// ErrWeakSecret is returned by NewManager when the secret is shorter than MinSecretLen.
	ErrWeakSecret = errors.New("jwt: signing secret is too short")
	// ErrUnknownTokenType is returned for a type claim other than access or refresh.
	ErrUnknownTokenType = errors.New("jwt: unknown token type")
)

// Config defines HS256 signing and validation settings.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
	// Now overrides the clock used for iat/exp and validation. Nil means time.Now.
	Now func() time.Time
}

// Manager signs and parses HS256 session tokens.
//
// Manager is immutable after NewManager and safe for concurrent use.
type Manager struct {
	config Config
}

// Claims is the token payload shared by access and refresh tokens.
// Refresh tokens leave Email and Role empty.
type Claims struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	SessionID string    `json:"sessionId"`
	Type      TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenSpec describes a token to be signed by Issue.
type TokenSpec struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
	Type      TokenType
	TTL       time.Duration
	// IssuedAt pins iat and the expiry base. Zero means the manager clock.
	IssuedAt time.Time
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if len(cfg.Secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	return &Manager{config: cfg}, nil
}

// Issue signs a token for spec. The expiry is IssuedAt+spec.TTL, with
// IssuedAt defaulting to the manager clock.
func (j *Manager) Issue(spec TokenSpec) (string, error) {
	if spec.Type != TypeAccess && spec.Type != TypeRefresh {
		return "", ErrUnknownTokenType
	}
	if spec.TTL <= 0 {
		return "", errors.New("jwt: invalid TTL")
	}

	now := spec.IssuedAt
	if now.IsZero() {
		now = j.config.Now()
	}
	claims := Claims{
		UserID:    spec.UserID,
		Email:     spec.Email,
		Role:      spec.Role,
		SessionID: spec.SessionID,
		Type:      spec.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(spec.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
		},
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.config.Secret)
}

// Parse checks signature, issuer, audience and expiry and returns the claims.
// It does not consult any session state.
func (j *Manager) Parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return j.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != TypeAccess && claims.Type != TypeRefresh {
		return nil, ErrUnknownTokenType
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}
