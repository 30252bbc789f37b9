package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only if it still carries the owner token, so a
// holder whose TTL expired cannot release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard holds keys in Redis with SETNX and a TTL, so the guard spans every
// replica of the service.
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    zerolog.Logger
}

func NewRedisGuard(client *redis.Client, prefix string, ttl time.Duration, log zerolog.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{client: client, prefix: prefix, ttl: ttl, log: log}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := g.prefix + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, fullKey, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	return func() { g.release(fullKey, token) }, nil
}

// release drops the key if token still owns it. A failed release leaves the
// key held until its TTL runs out.
func (g *RedisGuard) release(fullKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, g.client, []string{fullKey}, token).Err(); err != nil {
		g.log.Warn().Err(err).Str("key", fullKey).Dur("ttl", g.ttl).Msg("release lock")
	}
}
