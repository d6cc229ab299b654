package sessionauth

import (
	"time"

	"github.com/fundn3xus/sessionauth/session"
)

// SecurityReport summarizes the security-relevant settings a Manager runs
// with. It never includes the secret.
type SecurityReport struct {
	ProductionMode    bool
	SigningAlgorithm  string
	Issuer            string
	Audience          string
	Leeway            time.Duration
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	IdleTimeout       time.Duration
	RefreshRotation   bool
	SessionBackend    string
	PlaceholderSecret bool
	AuditEnabled      bool
	MetricsEnabled    bool
}

// SecurityReport returns the Manager's effective security settings.
func (m *Manager) SecurityReport() SecurityReport {
	if m == nil {
		return SecurityReport{}
	}

	backend := "custom"
	switch m.store.(type) {
	case *session.MemoryStore:
		backend = "memory"
	case *session.RedisStore:
		backend = "redis"
	}

	return SecurityReport{
		ProductionMode:    m.config.Production,
		SigningAlgorithm:  "HS256",
		Issuer:            m.config.JWT.Issuer,
		Audience:          m.config.JWT.Audience,
		Leeway:            m.config.JWT.Leeway,
		AccessTTL:         AccessTokenTTL,
		RefreshTTL:        RefreshTokenTTL,
		IdleTimeout:       RefreshTokenTTL,
		RefreshRotation:   false,
		SessionBackend:    backend,
		PlaceholderSecret: string(m.config.JWT.Secret) == PlaceholderSecret,
		AuditEnabled:      m.config.Audit.Enabled,
		MetricsEnabled:    m.config.Metrics.Enabled,
	}
}
