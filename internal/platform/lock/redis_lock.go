// Package lock provides a Redis-backed mutual exclusion lock shared across processes.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock implements a single-holder lock with SET NX and a TTL.
type RedisLock struct {
	client   *redis.Client
	prefix   string
	newToken func() string
}

// NewRedisLock creates a RedisLock whose keys live under prefix.
func NewRedisLock(client *redis.Client, prefix string) *RedisLock {
	if prefix == "" {
		prefix = "lock"
	}
	return &RedisLock{
		client:   client,
		prefix:   prefix,
		newToken: uuid.NewString,
	}
}

func (l *RedisLock) key(name string) string {
	return fmt.Sprintf("%s:%s", l.prefix, name)
}

// TryAcquire takes name for ttl without waiting. acquired is false when another holder has it.
// The returned release only deletes the key if this holder still owns it.
func (l *RedisLock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	key := l.key(name)
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}
		return nil
	}
	return release, true, nil
}
