package sweep

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fundn3xus/sessionauth"
)

type countingSweeper struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *countingSweeper) SweepExpired(context.Context) int {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	return 2
}

func TestRunnerTicksUntilStopped(t *testing.T) {
	s := &countingSweeper{}
	r := NewRunner(s, 5*time.Millisecond, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(context.Background()); err != ErrAlreadyStarted {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	r.Stop()
	if s.calls.Load() < 2 {
		t.Fatalf("expected at least two sweeps, got %d", s.calls.Load())
	}

	after := s.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if s.calls.Load() != after {
		t.Fatal("sweeps continued after Stop")
	}
	r.Stop()
}

func TestRunOnceSkipsWhileRunning(t *testing.T) {
	s := &countingSweeper{release: make(chan struct{})}
	r := NewRunner(s, time.Hour, nil)

	first := make(chan int)
	go func() {
		n, _ := r.RunOnce(context.Background())
		first <- n
	}()

	for s.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	if _, ran := r.RunOnce(context.Background()); ran {
		t.Fatal("expected overlapping run to be skipped")
	}

	close(s.release)
	if n := <-first; n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if n, ran := r.RunOnce(context.Background()); !ran || n != 2 {
		t.Fatalf("expected run after release, got %d %v", n, ran)
	}
}

func TestRunnerSweepsManager(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m, err := sessionauth.New().
		WithSecret([]byte("sweep-secret-sweep-secret-sweep!!")).
		WithClock(func() time.Time { return now }).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer m.Close()

	ctx := context.Background()
	if _, err := m.Issue(ctx, sessionauth.Subject{UserID: "u"}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = now.Add(sessionauth.RefreshTokenTTL + time.Second)

	if n, ran := NewRunner(m, time.Hour, nil).RunOnce(ctx); !ran || n != 1 {
		t.Fatalf("expected one swept session, got %d %v", n, ran)
	}
	if m.CountSessionsForUser(ctx, "u") != 0 {
		t.Fatal("expected session removed")
	}
}
