package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cbs/consultation-web/internal/core/ports"
)

// TransitionLock is a process-local try-lock with expiry.
type TransitionLock struct {
	mu    sync.Mutex
	held  map[string]uint64
	until map[string]time.Time
	seq   uint64
	now   func() time.Time
}

var _ ports.TransitionLock = (*TransitionLock)(nil)

func NewTransitionLock() *TransitionLock {
	return &TransitionLock{
		held:  make(map[string]uint64),
		until: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (l *TransitionLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if _, busy := l.held[key]; busy && now.Before(l.until[key]) {
		return nil, false, nil
	}

	l.seq++
	token := l.seq
	l.held[key] = token
	l.until[key] = now.Add(ttl)

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[key] == token {
				delete(l.held, key)
				delete(l.until, key)
			}
		})
	}
	return release, true, nil
}
