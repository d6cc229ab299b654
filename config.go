package sessionauth

import (
	"errors"
	"strings"
	"time"
)

// Token lifetimes are part of the client contract and are not configurable.
const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

const (
	DefaultIssuer   = "fundn3xus"
	DefaultAudience = "fundn3xus-users"
)

// PlaceholderSecret is the development default shipped in example env files.
// Production configurations must not use it.
const PlaceholderSecret = "your-super-secret-jwt-key-change-in-production"

// Config is the top-level Manager configuration. Build clones it, so later
// mutation by the caller has no effect.
type Config struct {
	JWT     JWTConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	// Production enables the stricter secret checks in Validate.
	Production bool
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig carries the HMAC signing secret and registered-claim values.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a Config with everything but the secret filled in.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Issuer:   DefaultIssuer,
			Audience: DefaultAudience,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) == 0 {
		return ErrSigningKeyMissing
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT Secret must be at least 32 bytes")
	}
	if c.Production && string(c.JWT.Secret) == PlaceholderSecret {
		return errors.New("JWT Secret must not be the placeholder value in production")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must be set")
	}
	if strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience must be set")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}
