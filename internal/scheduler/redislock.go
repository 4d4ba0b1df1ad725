package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only when this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock implements Locker on a shared Redis. Each instance carries its
// own holder token so releases cannot clobber a lease taken over after
// expiry.
type RedisLock struct {
	client *redis.Client
	prefix string
	holder string
}

func NewRedisLock(client *redis.Client, prefix string) *RedisLock {
	return &RedisLock{
		client: client,
		prefix: prefix,
		holder: uuid.NewString(),
	}
}

func (l *RedisLock) key(name string) string {
	return l.prefix + ":lease:" + name
}

func (l *RedisLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(name), l.holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %q: %w", name, err)
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context, name string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(name)}, l.holder).Err(); err != nil {
		return fmt.Errorf("release lease %q: %w", name, err)
	}
	return nil
}
