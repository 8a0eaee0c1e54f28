package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cbs/consultation-web/internal/core/ports"
)

const lockPrefix = "cbs:lock:"

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TransitionLock is a SETNX lock shared by every instance behind the same
// redis. Key format: cbs:lock:<key>
type TransitionLock struct {
	client redis.Cmdable
	log    zerolog.Logger
}

var _ ports.TransitionLock = (*TransitionLock)(nil)

// NewTransitionLock wraps client.
func NewTransitionLock(client redis.Cmdable, log zerolog.Logger) *TransitionLock {
	return &TransitionLock{client: client, log: log.With().Str("component", "transition_lock").Logger()}
}

func (l *TransitionLock) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	k := lockPrefix + key
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, k, owner, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
		defer cancel()
		if err := releaseScript.Run(relCtx, l.client, []string{k}, owner).Err(); err != nil {
			l.log.Warn().Err(err).Str("key", k).Msg("release lock")
		}
	}
	return release, true, nil
}
