// Package sweep runs session expiry sweeps on a timer.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is used when Runner is built with a non-positive interval.
const DefaultInterval = time.Hour

// ErrAlreadyStarted is returned by Start on a running Runner.
var ErrAlreadyStarted = errors.New("sweep: runner already started")

// Sweeper is satisfied by *sessionauth.Manager.
type Sweeper interface {
	SweepExpired(ctx context.Context) int
}

// Runner calls SweepExpired every interval. Runs never overlap: a tick or
// RunOnce that arrives while a sweep is in progress is skipped.
type Runner struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger

	running sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner returns a stopped Runner that sweeps every interval.
func NewRunner(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger.With("component", "sweep"),
	}
}

// Start launches the background loop. It returns when the loop is running;
// the loop exits when ctx is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx, r.done)
	r.logger.Info("session sweeper started", "interval", r.interval)
	return nil
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and returns the number of sessions removed
// and whether the sweep ran.
func (r *Runner) RunOnce(ctx context.Context) (int, bool) {
	if !r.running.TryLock() {
		r.logger.Debug("sweep skipped, previous run still active")
		return 0, false
	}
	defer r.running.Unlock()

	start := time.Now()
	removed := r.sweeper.SweepExpired(ctx)
	r.logger.Debug("sweep finished", "removed", removed, "duration", time.Since(start))
	return removed, true
}

// Stop cancels the loop and waits for an in-flight sweep to finish. It is
// safe to call on a Runner that was never started.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Info("session sweeper stopped")
}
