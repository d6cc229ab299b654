package rate

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	expires time.Time
}

// pruneEvery is the number of new windows between expiry scans.
const pruneEvery = 256

// MemoryLimiter is the single-process counterpart of RedisLimiter. Expired
// windows are evicted on access and by a scan every pruneEvery new keys, so
// the table stays bounded by the keys seen within one window.
type MemoryLimiter struct {
	config Config
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]window
	inserts int
}

// NewMemoryLimiter creates a MemoryLimiter. A nil now uses time.Now.
func NewMemoryLimiter(cfg Config, now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{config: cfg, now: now, windows: make(map[string]window)}
}

// ReserveLogin counts an attempt under the limiter lock and returns
// ErrRateLimited once the identifier or ip budget is exceeded.
func (l *MemoryLimiter) ReserveLogin(_ context.Context, identifier, ip string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	limited := false
	for _, key := range l.config.keys("mem", identifier, ip) {
		w, ok := l.live(key, now)
		if !ok {
			w = window{expires: now.Add(l.config.Window)}
			l.inserts++
		}
		w.count++
		l.windows[key] = w
		if w.count > l.config.MaxAttempts {
			limited = true
		}
	}
	if l.inserts >= pruneEvery {
		l.prune(now)
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the identifier counter and returns the attempt to the
// IP budget.
func (l *MemoryLimiter) ResetLogin(_ context.Context, identifier, ip string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, "mem:al:"+normalize(identifier))
	if l.config.EnableIPThrottle && ip != "" {
		key := "mem:ali:" + ip
		if w, ok := l.live(key, l.now()); ok {
			w.count--
			if w.count <= 0 {
				delete(l.windows, key)
			} else {
				l.windows[key] = w
			}
		}
	}
	return nil
}

// Prune drops every expired window and returns how many were removed.
func (l *MemoryLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prune(l.now())
}

// Len reports the number of tracked windows, expired or not.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *MemoryLimiter) prune(now time.Time) int {
	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.expires) {
			delete(l.windows, key)
			removed++
		}
	}
	l.inserts = 0
	return removed
}

// live returns the unexpired window for key, dropping an expired one.
func (l *MemoryLimiter) live(key string, now time.Time) (window, bool) {
	w, ok := l.windows[key]
	if !ok {
		return window{}, false
	}
	if !now.Before(w.expires) {
		delete(l.windows, key)
		return window{}, false
	}
	return w, true
}
