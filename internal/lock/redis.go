// Package lock keeps two overlapping runs from dispatching the same day twice.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrHeld = errors.New("run lock held by another process")

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a single-key SET NX PX lock. The TTL bounds how long a crashed
// run can block the next one.
type RedisLock struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisLock(rdb *redis.Client, key string, ttl time.Duration) *RedisLock {
	if key == "" {
		key = "reminders:run-lock"
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLock{rdb: rdb, key: key, ttl: ttl}
}

// Acquire takes the lock for owner. ErrHeld means another run owns it.
func (l *RedisLock) Acquire(ctx context.Context, owner string) error {
	ok, err := l.rdb.SetNX(ctx, l.key, owner, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return ErrHeld
	}
	return nil
}

// Release drops the lock if owner still holds it.
func (l *RedisLock) Release(ctx context.Context, owner string) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, owner).Err(); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
