package auth

import (
	"context"
	"testing"
	"time"
)

func TestMemoryUsedCodeStoreConsume(t *testing.T) {
	store := NewMemoryUsedCodeStore()
	ctx := context.Background()

	first, err := store.Consume(ctx, "key-1", time.Minute)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if !first {
		t.Fatal("expected first consume to succeed")
	}
	again, err := store.Consume(ctx, "key-1", time.Minute)
	if err != nil {
		t.Fatalf("Consume repeat: %v", err)
	}
	if again {
		t.Fatal("expected repeat consume to report already used")
	}
	other, err := store.Consume(ctx, "key-2", time.Minute)
	if err != nil || !other {
		t.Fatalf("expected independent key to succeed, got ok=%v err=%v", other, err)
	}
}

func TestMemoryUsedCodeStoreExpiry(t *testing.T) {
	store := NewMemoryUsedCodeStore()
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	ctx := context.Background()

	if ok, _ := store.Consume(ctx, "key", time.Minute); !ok {
		t.Fatal("expected first consume to succeed")
	}
	current = current.Add(2 * time.Minute)
	if ok, _ := store.Consume(ctx, "key", time.Minute); !ok {
		t.Fatal("expected expired entry to be consumable again")
	}
}

func TestMemoryUsedCodeStorePurge(t *testing.T) {
	store := NewMemoryUsedCodeStore()
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	ctx := context.Background()

	if ok, _ := store.Consume(ctx, "stale", time.Minute); !ok {
		t.Fatal("expected consume to succeed")
	}
	if ok, _ := store.Consume(ctx, "fresh", time.Hour); !ok {
		t.Fatal("expected consume to succeed")
	}

	current = current.Add(10 * time.Minute)
	if removed := store.PurgeExpired(); removed != 1 {
		t.Fatalf("expected 1 purged entry, got %d", removed)
	}
	if ok, _ := store.Consume(ctx, "fresh", time.Hour); ok {
		t.Fatal("expected unexpired entry to survive the purge")
	}
}

func TestMemoryUsedCodeStoreHonoursContext(t *testing.T) {
	store := NewMemoryUsedCodeStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Consume(ctx, "key", time.Minute); err == nil {
		t.Fatal("expected cancelled context to fail")
	}
}
