package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when a lock is held by another worker and
// could not be acquired within the context deadline.
var ErrLockNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the lock key only if it still holds our token, so an
// expired lock re-acquired by another worker is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const lockRetryInterval = 50 * time.Millisecond

// RedisLocker provides per-key mutual exclusion across workers.
type RedisLocker struct {
	client redis.UniversalClient
}

// NewRedisLocker creates a new Redis-backed locker.
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire obtains the lock for key, blocking until it is acquired or the
// context is done. The returned release function is safe to call once.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			release := func() {
				releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token)
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockNotAcquired, ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}
