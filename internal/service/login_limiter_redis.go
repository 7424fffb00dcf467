package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisLoginFailScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

const redisLimiterTimeout = 500 * time.Millisecond

type redisLoginLimiter struct {
	client redisLimiterClient
	window time.Duration
	max    int
	prefix string
}

type redisLimiterClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// NewRedisLoginLimiter comparte el conteo de fallos entre instancias.
// Ventana fija: el contador expira window después del primer fallo.
func NewRedisLoginLimiter(client *redis.Client, window time.Duration, max int) LoginLimiter {
	if client == nil || max <= 0 {
		return nil
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &redisLoginLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "login:fail:",
	}
}

// Allow falla abierto si Redis no responde.
func (l *redisLoginLimiter) Allow(ctx context.Context, key string) bool {
	redisKey, ok := l.key(key)
	if !ok {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, redisLimiterTimeout)
	defer cancel()

	count, err := l.client.Get(ctx, redisKey).Int()
	if err != nil {
		return true
	}
	return count < l.max
}

func (l *redisLoginLimiter) Fail(ctx context.Context, key string) {
	redisKey, ok := l.key(key)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, redisLimiterTimeout)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	_ = l.client.Eval(ctx, redisLoginFailScript, []string{redisKey}, seconds).Err()
}

func (l *redisLoginLimiter) Reset(ctx context.Context, key string) {
	redisKey, ok := l.key(key)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, redisLimiterTimeout)
	defer cancel()

	_ = l.client.Del(ctx, redisKey).Err()
}

func (l *redisLoginLimiter) key(key string) (string, bool) {
	if l == nil || l.client == nil {
		return "", false
	}
	normalized := normalizeLimiterKey(key)
	if normalized == "" {
		return "", false
	}
	return l.prefix + normalized, true
}
