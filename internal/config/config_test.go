package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fundn3xus/sessionauth"
)

const testSecret = "config-test-secret-config-test-secret"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.JWTIssuer != sessionauth.DefaultIssuer || cfg.JWTAudience != sessionauth.DefaultAudience {
		t.Errorf("issuer/audience = %q/%q", cfg.JWTIssuer, cfg.JWTAudience)
	}
	if cfg.SessionBackend != BackendMemory {
		t.Errorf("SessionBackend = %q, want memory", cfg.SessionBackend)
	}
	if cfg.SweepInterval != time.Hour {
		t.Errorf("SweepInterval = %v, want 1h", cfg.SweepInterval)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if !cfg.MetricsEnabled || cfg.AuditEnabled {
		t.Errorf("metrics=%v audit=%v", cfg.MetricsEnabled, cfg.AuditEnabled)
	}
	if cfg.JSONLogs() {
		t.Error("development should default to text logs")
	}
	if cfg.LoginMaxAttempts != 5 || cfg.LoginWindow != 15*time.Minute {
		t.Errorf("login throttle = %d/%v, want 5/15m", cfg.LoginMaxAttempts, cfg.LoginWindow)
	}
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadFile(""); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("SWEEP_INTERVAL", "30m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.SessionBackend != BackendRedis || cfg.SweepInterval != 30*time.Minute {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
	if got := cfg.AllowedOrigins(); len(got) != 2 || got[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", got)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("JWT_SECRET="+testSecret+"\nHTTP_ADDR=:7070\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_ADDR", ":6060")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWTSecret != testSecret {
		t.Errorf("JWTSecret not read from .env")
	}
	if cfg.HTTPAddr != ":6060" {
		t.Errorf("env must override .env, got %q", cfg.HTTPAddr)
	}
}

func TestLoad_ProductionRules(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", sessionauth.PlaceholderSecret)
	if _, err := LoadFile(""); err == nil {
		t.Fatal("expected placeholder secret to be rejected in production")
	}

	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CORS_ALLOWED_ORIGINS", "*")
	if _, err := LoadFile(""); err == nil {
		t.Fatal("expected wildcard CORS to be rejected in production")
	}

	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example")
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.JSONLogs() {
		t.Error("production should default to JSON logs")
	}
	if sc := cfg.SessionConfig(); !sc.Production || string(sc.JWT.Secret) != testSecret {
		t.Errorf("unexpected session config %+v", sc)
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SESSION_BACKEND", "etcd")
	if _, err := LoadFile(""); err == nil {
		t.Fatal("expected unknown backend error")
	}
}

func TestSessionConfigValidates(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sc := cfg.SessionConfig()
	if err := sc.Validate(); err != nil {
		t.Fatalf("session config invalid: %v", err)
	}
}
