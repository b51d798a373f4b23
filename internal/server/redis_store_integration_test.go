//go:build redis

package server

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// Run with: go test -tags redis ./internal/server -run Redis
// Requires REVIEWDECK_TEST_REDIS_ADDR pointing at a disposable Redis.
func TestRedisStoreFixedWindow(t *testing.T) {
	addr := os.Getenv("REVIEWDECK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("REVIEWDECK_TEST_REDIS_ADDR is not set")
	}

	store := newRedisStore(addr, os.Getenv("REVIEWDECK_TEST_REDIS_PASSWORD"), 2*time.Second)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	key := fmt.Sprintf("reviewdeck:test:%d", time.Now().UnixNano())
	for i := 0; i < 2; i++ {
		allowed, _, err := store.Allow(ctx, key, 2, time.Minute)
		if err != nil {
			t.Fatalf("Allow %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("expected attempt %d to be allowed", i)
		}
	}

	allowed, retryAfter, err := store.Allow(ctx, key, 2, time.Minute)
	if err != nil {
		t.Fatalf("Allow over limit: %v", err)
	}
	if allowed {
		t.Fatal("expected third attempt to be throttled")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("unexpected retry-after %v", retryAfter)
	}
}
