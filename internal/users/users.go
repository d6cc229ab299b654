// Package users is a file-backed user directory for the login route. It is
// meant for development and small deployments where an external identity
// provider is not available.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fundn3xus/sessionauth"
	"github.com/fundn3xus/sessionauth/password"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Identity is the authenticated user handed to the session manager.
type Identity struct {
	ID          string           `json:"id"`
	Email       string           `json:"email"`
	DisplayName string           `json:"displayName,omitempty"`
	Role        sessionauth.Role `json:"-"`
}

// Record is one entry of the users file.
type Record struct {
	ID           string `yaml:"id"`
	Email        string `yaml:"email"`
	DisplayName  string `yaml:"display_name"`
	Role         string `yaml:"role"`
	PasswordHash string `yaml:"password_hash"`
}

type file struct {
	Users []Record `yaml:"users"`
}

// Directory authenticates users against an in-memory copy of the users file.
// It is read-only after construction and safe for concurrent use.
type Directory struct {
	byEmail   map[string]Record
	hasher    *password.Argon2
	dummyHash string
	logger    *slog.Logger
}

// Load reads a YAML users file.
func Load(path string, hasher *password.Argon2, logger *slog.Logger) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("users: read %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("users: decode %s: %w", path, err)
	}
	return New(f.Users, hasher, logger)
}

// New builds a Directory from records. Emails are matched case-insensitively
// and must be unique. An empty role defaults to user.
func New(records []Record, hasher *password.Argon2, logger *slog.Logger) (*Directory, error) {
	if hasher == nil {
		return nil, errors.New("users: hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Directory{
		byEmail: make(map[string]Record, len(records)),
		hasher:  hasher,
		logger:  logger.With("component", "users"),
	}
	for i, r := range records {
		if r.ID == "" || r.Email == "" || r.PasswordHash == "" {
			return nil, fmt.Errorf("users: entry %d needs id, email and password_hash", i)
		}
		if r.Role == "" {
			r.Role = string(sessionauth.RoleUser)
		}
		if !sessionauth.Role(r.Role).Valid() {
			return nil, fmt.Errorf("users: entry %d has invalid role %q", i, r.Role)
		}
		key := normalize(r.Email)
		if _, dup := d.byEmail[key]; dup {
			return nil, fmt.Errorf("users: duplicate email %q", r.Email)
		}
		d.byEmail[key] = r
	}

	dummy, err := hasher.Hash("dummy-password-for-unknown-users")
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	d.dummyHash = dummy
	return d, nil
}

// Authenticate checks email and password. Unknown emails cost the same
// Argon2 work as known ones.
func (d *Directory) Authenticate(_ context.Context, email, pass string) (Identity, error) {
	rec, ok := d.byEmail[normalize(email)]
	if !ok {
		_, _ = d.hasher.Verify(pass, d.dummyHash)
		return Identity{}, ErrInvalidCredentials
	}

	match, err := d.hasher.Verify(pass, rec.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return Identity{}, ErrInvalidCredentials
		}
		d.logger.Error("stored password hash unusable", "user_id", rec.ID, "error", err)
		return Identity{}, ErrInvalidCredentials
	}
	if !match {
		return Identity{}, ErrInvalidCredentials
	}

	if upgrade, _ := d.hasher.NeedsUpgrade(rec.PasswordHash); upgrade {
		d.logger.Warn("password hash uses outdated parameters", "user_id", rec.ID)
	}

	return Identity{
		ID:          rec.ID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		Role:        sessionauth.Role(rec.Role),
	}, nil
}

// Len returns the number of users.
func (d *Directory) Len() int { return len(d.byEmail) }

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
