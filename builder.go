package sessionauth

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fundn3xus/sessionauth/internal/audit"
	"github.com/fundn3xus/sessionauth/jwt"
	"github.com/fundn3xus/sessionauth/session"
)

// Builder assembles a Manager. A Builder is single-use.
type Builder struct {
	config    Config
	store     session.Store
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New starts a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The Builder keeps its own copy.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the HMAC signing secret on the current config.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.JWT.Secret = cloneBytes(secret)
	return b
}

// WithStore selects the session table. The default is a fresh session.MemoryStore.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithAuditSink sets where audit events go when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the manager logger. The default is slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for token timestamps, session
// activity and sweeping.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verify-latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Manager. A missing
// signing secret is reported as ErrSigningKeyMissing; callers should treat
// any Build error as fatal at startup.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	store := b.store
	if store == nil {
		store = session.NewMemoryStore()
	}

	jm, err := jwt.NewManager(jwt.Config{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Leeway:   cfg.JWT.Leeway,
		Now:      now,
	})
	if err != nil {
		return nil, err
	}

	m := &Manager{
		config:       cfg,
		jwtManager:   jm,
		store:        store,
		logger:       logger.With("component", "sessionauth"),
		now:          now,
		newSessionID: uuid.NewString,
		metrics:      NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}
	m.flows = m.buildFlowDeps()

	b.built = true

	return m, nil
}
