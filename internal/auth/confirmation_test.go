package auth

import (
	"context"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testState() UserState {
	return UserState{
		ID:       "user-1",
		Username: "alice",
		Email:    "alice@example.com",
		Role:     "user",
	}
}

func newTestManager(t *testing.T, opts ...ConfirmationOption) *ConfirmationManager {
	t.Helper()
	manager, err := NewConfirmationManager(testSecret, 30*time.Minute, opts...)
	if err != nil {
		t.Fatalf("NewConfirmationManager: %v", err)
	}
	return manager
}

func TestConfirmationRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	state := testState()

	code, err := manager.Issue(state)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ok, err := manager.Check(context.Background(), state, code)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !ok {
		t.Fatal("expected issued code to validate")
	}
}

func TestConfirmationSingleUse(t *testing.T) {
	manager := newTestManager(t)
	state := testState()

	code, err := manager.Issue(state)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if ok, _ := manager.Check(context.Background(), state, code); !ok {
		t.Fatal("expected first use to succeed")
	}
	if ok, _ := manager.Check(context.Background(), state, code); ok {
		t.Fatal("expected reuse to be rejected")
	}
}

func TestConfirmationRejectsTamperedCode(t *testing.T) {
	manager := newTestManager(t)
	state := testState()

	code, err := manager.Issue(state)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	cases := []struct {
		name string
		code string
	}{
		{name: "empty", code: ""},
		{name: "no separator", code: strings.ReplaceAll(code, ".", "")},
		{name: "bad timestamp", code: "notanumber." + strings.SplitN(code, ".", 2)[1]},
		{name: "bad hex", code: strings.SplitN(code, ".", 2)[0] + ".zzzz"},
		{name: "flipped mac", code: code[:len(code)-1] + flipHexDigit(code[len(code)-1])},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if ok, err := manager.Check(context.Background(), state, tc.code); ok || err != nil {
				t.Fatalf("expected silent rejection, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func flipHexDigit(b byte) string {
	if b == '0' {
		return "1"
	}
	return "0"
}

func TestConfirmationInvalidatedByStateChange(t *testing.T) {
	manager := newTestManager(t)
	state := testState()

	code, err := manager.Issue(state)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	changed := state
	changed.Email = "new@example.com"
	if ok, _ := manager.Check(context.Background(), changed, code); ok {
		t.Fatal("expected state change to invalidate the code")
	}
	// The original state still validates: the failed attempt must not have
	// consumed the code.
	if ok, _ := manager.Check(context.Background(), state, code); !ok {
		t.Fatal("expected unchanged state to still validate")
	}
}

func TestConfirmationExpiry(t *testing.T) {
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	manager := newTestManager(t, WithConfirmationClock(func() time.Time { return current }))
	state := testState()

	code, err := manager.Issue(state)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	current = current.Add(29 * time.Minute)
	if ok, _ := manager.Check(context.Background(), state, code); !ok {
		t.Fatal("expected code to validate within the ttl")
	}

	fresh, err := manager.Issue(state)
	if err != nil {
		t.Fatalf("Issue fresh: %v", err)
	}
	current = current.Add(31 * time.Minute)
	if ok, _ := manager.Check(context.Background(), state, fresh); ok {
		t.Fatal("expected expired code to be rejected")
	}
}

func TestConfirmationRejectsFutureTimestamp(t *testing.T) {
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	manager := newTestManager(t, WithConfirmationClock(func() time.Time { return current }))
	state := testState()

	code, err := manager.Issue(state)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	current = current.Add(-5 * time.Minute)
	if ok, _ := manager.Check(context.Background(), state, code); ok {
		t.Fatal("expected code from the future to be rejected")
	}
}
