package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"scholarduel/src/core/ports"
)

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs.
	cleanupThreshold = 500
	// maxIdleAge is how long an unused key is kept.
	maxIdleAge = 10 * time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Local is a token bucket per key, held in process memory.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

var _ ports.RateLimiter = (*Local)(nil)

func NewLocal() *Local {
	return &Local{entries: make(map[string]*entry), now: time.Now}
}

// Allow spends one token from key's bucket, which refills limit tokens per window.
func (l *Local) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) > cleanupThreshold {
		cutoff := now.Add(-maxIdleAge)
		for k, e := range l.entries {
			if e.lastSeen.Before(cutoff) {
				delete(l.entries, k)
			}
		}
	}

	e, ok := l.entries[key]
	if !ok {
		every := rate.Every(window / time.Duration(limit))
		e = &entry{limiter: rate.NewLimiter(every, limit)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}
