package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker guards cleanup against overlapping runs. TryAcquire returns false
// without blocking when another run holds the lock.
type Locker interface {
	TryAcquire(ctx context.Context) (release func(), acquired bool, err error)
}

// NoopLocker always grants the lock. Used when no Redis is configured; the
// manager's own mutex still prevents overlap within one process.
type NoopLocker struct{}

func (NoopLocker) TryAcquire(context.Context) (func(), bool, error) {
	return func() {}, true, nil
}

const (
	redisLockKey = "audit:cleanup:lock"
	redisLockTTL = 30 * time.Minute
)

// RedisLocker serializes cleanup across replicas with SET NX. The TTL bounds
// how long a crashed holder can block other replicas.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryAcquire(ctx context.Context) (func(), bool, error) {
	ok, err := l.client.SetNX(ctx, redisLockKey, "1", redisLockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire cleanup lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		l.client.Del(context.WithoutCancel(ctx), redisLockKey)
	}
	return release, true, nil
}
