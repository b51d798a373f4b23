package auth

import (
	"context"
	"sync"
	"time"
)

// UsedCodeStore marks confirmation codes as spent. Consume returns true on
// first use and false when the key was already present; entries expire after
// ttl, matching the residual validity of the code.
type UsedCodeStore interface {
	Consume(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryUsedCodeStore is the single-process implementation. Expired entries
// linger until PurgeExpired runs; the server drives a purge loop.
type MemoryUsedCodeStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryUsedCodeStore() *MemoryUsedCodeStore {
	return &MemoryUsedCodeStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryUsedCodeStore) Consume(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if expiry, exists := s.entries[key]; exists && now.Before(expiry) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	return true, nil
}

// PurgeExpired drops stale entries and reports how many were removed.
func (s *MemoryUsedCodeStore) PurgeExpired() int {
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, expiry := range s.entries {
		if !now.Before(expiry) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
