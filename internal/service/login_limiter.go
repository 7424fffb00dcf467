package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter limita los logins fallidos por clave (username normalizado).
// Allow no consume intentos: solo Fail los cuenta y Reset los olvida.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) bool
	Fail(ctx context.Context, key string)
	Reset(ctx context.Context, key string)
}

type memoryLoginLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	limiters  map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter crea un limitador en memoria: max fallos por window, recargando de forma continua.
// Con max <= 0 devuelve nil y el servicio no limita.
func NewLoginLimiter(window time.Duration, max int) LoginLimiter {
	if max <= 0 {
		return nil
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &memoryLoginLimiter{
		window:   window,
		max:      max,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
	}
}

func (l *memoryLoginLimiter) Allow(_ context.Context, key string) bool {
	key = normalizeLimiterKey(key)
	if key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)
	entry, ok := l.limiters[key]
	if !ok {
		return true
	}
	return entry.limiter.TokensAt(now) >= 1
}

func (l *memoryLoginLimiter) Fail(_ context.Context, key string) {
	key = normalizeLimiterKey(key)
	if key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)
	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.max)), l.max)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	entry.limiter.AllowN(now, 1)
}

func (l *memoryLoginLimiter) Reset(_ context.Context, key string) {
	key = normalizeLimiterKey(key)
	if key == "" {
		return
	}
	l.mu.Lock()
	delete(l.limiters, key)
	l.mu.Unlock()
}

// evictIdle descarta claves sin fallos durante una ventana completa; su bucket ya estaría lleno.
// Recorre el mapa como mucho una vez por ventana.
func (l *memoryLoginLimiter) evictIdle(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.window {
			delete(l.limiters, key)
		}
	}
}

func normalizeLimiterKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
