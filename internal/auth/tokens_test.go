package auth

import (
	"testing"
	"time"
)

func newTestTokenManager(t *testing.T, opts ...TokenOption) *TokenManager {
	t.Helper()
	manager, err := NewTokenManager(testSecret, time.Hour, opts...)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	return manager
}

func TestTokenRoundTrip(t *testing.T) {
	manager := newTestTokenManager(t)
	state := testState()

	token, err := manager.Issue(state)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != state.ID {
		t.Fatalf("expected subject %q, got %q", state.ID, claims.Subject)
	}
	if claims.Username != "alice" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenExpiry(t *testing.T) {
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	manager := newTestTokenManager(t, WithTokenClock(func() time.Time { return current }))

	token, err := manager.Issue(testState())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	current = current.Add(2 * time.Hour)
	if _, err := manager.Verify(token); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	manager := newTestTokenManager(t)
	token, err := manager.Issue(testState())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, err := NewTokenManager([]byte("another-secret-another-secret-32"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Fatal("expected verification with a different secret to fail")
	}
}

func TestTokenGarbage(t *testing.T) {
	manager := newTestTokenManager(t)
	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := manager.Verify(token); err == nil {
			t.Fatalf("expected %q to fail verification", token)
		}
	}
}
