// Package memory holds single-process implementations of the session ports,
// used in development and tests when no redis is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
	"github.com/cbs/consultation-web/internal/pkg/sessionid"
)

type entry struct {
	session   domain.Session
	expiresAt time.Time
}

// SessionStores keeps sessions in a map keyed by the derived session key.
type SessionStores struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

var _ ports.SessionStores = (*SessionStores)(nil)

// NewSessionStores creates an empty store factory. A non-positive ttl keeps
// records until cleared.
func NewSessionStores(ttl time.Duration) *SessionStores {
	return &SessionStores{entries: make(map[string]entry), ttl: ttl, now: time.Now}
}

// Scope returns the store for one session id.
func (s *SessionStores) Scope(sid string) ports.SessionStore {
	return &sessionStore{parent: s, key: sessionid.Key(sid)}
}

// Len reports how many live records are held.
func (s *SessionStores) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	n := 0
	for _, e := range s.entries {
		if e.expiresAt.IsZero() || now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

type sessionStore struct {
	parent *SessionStores
	key    string
}

func (st *sessionStore) Save(ctx context.Context, user *domain.User, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if token == "" {
		return ports.ErrNoToken
	}
	p := st.parent
	now := p.now()
	e := entry{session: domain.Session{User: user.Clone(), Token: token, CachedAt: now.UTC()}}
	if p.ttl > 0 {
		e.expiresAt = now.Add(p.ttl)
	}

	p.mu.Lock()
	p.entries[st.key] = e
	p.mu.Unlock()
	return nil
}

func (st *sessionStore) Load(ctx context.Context) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := st.parent

	p.mu.RLock()
	e, ok := p.entries[st.key]
	p.mu.RUnlock()

	if !ok || e.session.Token == "" {
		return nil, nil
	}
	if !e.expiresAt.IsZero() && !p.now().Before(e.expiresAt) {
		p.mu.Lock()
		delete(p.entries, st.key)
		p.mu.Unlock()
		return nil, nil
	}

	out := e.session
	out.User = e.session.User.Clone()
	return &out, nil
}

func (st *sessionStore) Clear(ctx context.Context) error {
	st.parent.mu.Lock()
	delete(st.parent.entries, st.key)
	st.parent.mu.Unlock()
	return nil
}
