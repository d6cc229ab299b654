// Command sessionauth-server serves the session token routes over HTTP.
//
// Usage:
//
//	sessionauth-server                 run the server (configured from env / .env)
//	sessionauth-server hash-password   read a password on stdin, print its Argon2id hash
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fundn3xus/sessionauth"
	"github.com/fundn3xus/sessionauth/internal/config"
	"github.com/fundn3xus/sessionauth/internal/httpapi"
	"github.com/fundn3xus/sessionauth/internal/rate"
	"github.com/fundn3xus/sessionauth/internal/users"
	"github.com/fundn3xus/sessionauth/metrics/export/prometheus"
	"github.com/fundn3xus/sessionauth/password"
	"github.com/fundn3xus/sessionauth/session"
	"github.com/fundn3xus/sessionauth/sweep"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.JSONLogs() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func hashPassword(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

type backend struct {
	store   session.Store
	limiter httpapi.LoginLimiter
	health  func(context.Context) error
	close   func()
}

// openBackend returns the configured session store and login limiter. Both
// share one Redis client when SESSION_BACKEND=redis.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	limitCfg := rate.Config{
		MaxAttempts:      cfg.LoginMaxAttempts,
		Window:           cfg.LoginWindow,
		EnableIPThrottle: true,
	}

	if cfg.SessionBackend != config.BackendRedis {
		b := &backend{store: session.NewMemoryStore(), close: func() {}}
		if cfg.LoginMaxAttempts > 0 {
			b.limiter = rate.NewMemoryLimiter(limitCfg, nil)
		}
		return b, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	store := session.NewRedisStore(client, cfg.RedisPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := store.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, err
	}

	b := &backend{
		store: store,
		health: func(ctx context.Context) error {
			_, err := store.Ping(ctx)
			return err
		},
		close: func() { _ = client.Close() },
	}
	if cfg.LoginMaxAttempts > 0 {
		b.limiter = rate.NewRedisLimiter(client, cfg.RedisPrefix, limitCfg)
	}
	return b, nil
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()
	logger.Info("session store ready", "backend", cfg.SessionBackend)

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}
	directory, err := users.Load(cfg.UsersFile, hasher, logger)
	if err != nil {
		return err
	}
	logger.Info("user directory loaded", "path", cfg.UsersFile, "users", directory.Len())

	builder := sessionauth.New().
		WithConfig(cfg.SessionConfig()).
		WithStore(be.store).
		WithLogger(logger)
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(sessionauth.NewSlogSink(logger))
	}
	manager, err := builder.Build()
	if err != nil {
		return err
	}
	defer manager.Close()

	report := manager.SecurityReport()
	logger.Info("session manager ready",
		"production", report.ProductionMode,
		"backend", report.SessionBackend,
		"issuer", report.Issuer,
		"audience", report.Audience,
		"audit", report.AuditEnabled,
		"metrics", report.MetricsEnabled,
	)
	if report.PlaceholderSecret {
		logger.Warn("JWT_SECRET is the development placeholder; set a real secret before deploying")
	}

	sweeper := sweep.NewRunner(manager, cfg.SweepInterval, logger)
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = prometheus.NewExporter(manager).Handler()
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.RouterOptions{
			Sessions:       manager,
			Authenticator:  directory,
			LoginLimiter:   be.limiter,
			AllowedOrigins: cfg.AllowedOrigins(),
			SecureCookies:  cfg.IsProduction(),
			Metrics:        metricsHandler,
			Health:         be.health,
			AccessLog:      true,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
