package ports

import (
	"context"
	"errors"
	"time"

	"github.com/cbs/consultation-web/internal/core/domain"
)

// ErrNoToken is returned by Save when no credential is given. A session
// without a token is not a session.
var ErrNoToken = errors.New("session token is required")

// SessionStore persists the Session of exactly one browser context.
type SessionStore interface {
	// Save writes user and token, stamping the cached time. An empty token
	// fails with ErrNoToken and leaves the store untouched.
	Save(ctx context.Context, user *domain.User, token string) error
	// Load returns nil (and no error) when nothing usable is stored; malformed
	// records count as nothing. The error is reserved for backend failures.
	Load(ctx context.Context) (*domain.Session, error)
	// Clear removes the session. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error
}

// SessionStores hands out per-browser-context stores keyed by session id.
type SessionStores interface {
	Scope(sid string) SessionStore
}

// TransitionLock serialises session transitions for one session id across
// every request (and every instance) that may touch it.
type TransitionLock interface {
	// TryAcquire returns ok=false without blocking when key is already held.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
