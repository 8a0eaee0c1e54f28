package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/core/domain"
	"github.com/cbs/consultation-web/internal/core/ports"
	"github.com/cbs/consultation-web/internal/pkg/sessionid"
)

const sessionPrefix = "cbs:session:"

// SessionStores keeps one JSON record per browser context.
// Key format: cbs:session:<sessionid.Key(sid)>
type SessionStores struct {
	client redis.Cmdable
	ttl    time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

var _ ports.SessionStores = (*SessionStores)(nil)

// NewSessionStores creates a store factory whose records expire after ttl.
func NewSessionStores(client redis.Cmdable, ttl time.Duration, log zerolog.Logger) *SessionStores {
	return &SessionStores{
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "session_store").Logger(),
		now:    time.Now,
	}
}

// Scope returns the store for one session id.
func (s *SessionStores) Scope(sid string) ports.SessionStore {
	return &sessionStore{parent: s, key: sessionPrefix + sessionid.Key(sid)}
}

type sessionStore struct {
	parent *SessionStores
	key    string
}

func (st *sessionStore) Save(ctx context.Context, user *domain.User, token string) error {
	if token == "" {
		return ports.ErrNoToken
	}
	rec := domain.Session{User: user.Clone(), Token: token, CachedAt: st.parent.now().UTC()}
	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := st.parent.client.Set(ctx, st.key, buf, st.parent.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (st *sessionStore) Load(ctx context.Context) (*domain.Session, error) {
	raw, err := st.parent.client.Get(ctx, st.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var rec domain.Session
	if err := json.Unmarshal(raw, &rec); err != nil {
		st.parent.log.Warn().Err(err).Str("key", st.key).Msg("discarding malformed session record")
		return nil, nil
	}
	if rec.Token == "" {
		return nil, nil
	}
	return &rec, nil
}

func (st *sessionStore) Clear(ctx context.Context) error {
	if err := st.parent.client.Del(ctx, st.key).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
