package server

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type RateLimitConfig struct {
	GlobalRPS     float64
	GlobalBurst   int
	AuthLimit     int
	AuthWindow    time.Duration
	RedisAddr     string
	RedisPassword string
	RedisTimeout  time.Duration
}

// rateLimiter combines a global token bucket with a per-IP limit on the auth
// endpoints. With a Redis address configured the per-IP limit is shared
// across replicas through a fixed-window counter.
type rateLimiter struct {
	global      *tokenBucket
	authLimit   int
	authWindow  time.Duration
	authMu      sync.Mutex
	authBuckets map[string]*ipLimiter
	store       *redisStore
}

type ipLimiter struct {
	bucket   *tokenBucket
	lastSeen time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		authLimit:   cfg.AuthLimit,
		authWindow:  cfg.AuthWindow,
		authBuckets: make(map[string]*ipLimiter),
	}
	if cfg.GlobalRPS > 0 {
		burst := cfg.GlobalBurst
		if burst <= 0 {
			burst = int(cfg.GlobalRPS)
			if burst < 1 {
				burst = 1
			}
		}
		rl.global = newTokenBucket(cfg.GlobalRPS, burst)
	}
	if rl.authLimit <= 0 {
		rl.authLimit = 0
	}
	if rl.authWindow <= 0 {
		rl.authWindow = time.Minute
	}
	if cfg.RedisAddr != "" && rl.authLimit > 0 {
		timeout := cfg.RedisTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		rl.store = newRedisStore(cfg.RedisAddr, cfg.RedisPassword, timeout)
	}
	return rl
}

func (r *rateLimiter) AllowRequest() bool {
	if r == nil || r.global == nil {
		return true
	}
	return r.global.Allow()
}

func (r *rateLimiter) AllowAuth(ctx context.Context, key string) (bool, time.Duration, error) {
	if r == nil || r.authLimit <= 0 {
		return true, 0, nil
	}
	if r.store != nil {
		return r.store.Allow(ctx, fmt.Sprintf("reviewdeck:auth:%s", key), r.authLimit, r.authWindow)
	}
	if key == "" {
		key = "unknown"
	}
	r.authMu.Lock()
	bucket, exists := r.authBuckets[key]
	if !exists {
		rate := float64(r.authLimit) / r.authWindow.Seconds()
		if rate <= 0 {
			rate = 1 / r.authWindow.Seconds()
		}
		bucket = &ipLimiter{bucket: newTokenBucket(rate, r.authLimit)}
		r.authBuckets[key] = bucket
	}
	bucket.lastSeen = time.Now()
	r.cleanupLocked()
	r.authMu.Unlock()

	if bucket.bucket.Allow() {
		return true, 0, nil
	}
	return false, time.Second, nil
}

// Ping reports the health of the shared limiter store when one is configured.
func (r *rateLimiter) Ping(ctx context.Context) error {
	if r == nil || r.store == nil {
		return nil
	}
	return r.store.Ping(ctx)
}

func (r *rateLimiter) cleanupLocked() {
	if len(r.authBuckets) == 0 {
		return
	}
	cutoff := time.Now().Add(-2 * r.authWindow)
	for key, bucket := range r.authBuckets {
		if bucket.lastSeen.Before(cutoff) {
			delete(r.authBuckets, key)
		}
	}
}

type tokenBucket struct {
	mu        sync.Mutex
	rate      float64
	capacity  float64
	tokens    float64
	lastCheck time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	now := time.Now()
	return &tokenBucket{
		rate:      rate,
		capacity:  float64(burst),
		tokens:    float64(burst),
		lastCheck: now,
	}
}

func (tb *tokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	now := time.Now()
	elapsed := now.Sub(tb.lastCheck).Seconds()
	tb.lastCheck = now
	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	if tb.tokens < 1 {
		return false
	}
	tb.tokens -= 1
	return true
}
