// Package auth issues and validates the two credentials of the signup flow:
// short-lived confirmation codes delivered by email, and the JWT access
// tokens exchanged for them.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// DefaultConfirmationTTL bounds how long an emailed code stays valid.
const DefaultConfirmationTTL = 30 * time.Minute

// clockSkewAllowance tolerates codes timestamped slightly ahead of this
// replica's clock.
const clockSkewAllowance = time.Minute

const (
	usedKeyIterations = 10000
	usedKeyLength     = 32
)

// UserState captures the identity fields a confirmation code is bound to.
// Changing any of them invalidates every previously issued code for the
// account.
type UserState struct {
	ID       string
	Username string
	Email    string
	Role     string
	Elevated bool
}

// ConfirmationManager derives codes as an HMAC over the account state plus
// an issue timestamp, so nothing needs to be stored at issue time. Validated
// codes are consumed through a single-use store.
type ConfirmationManager struct {
	secret []byte
	ttl    time.Duration
	used   UsedCodeStore
	now    func() time.Time
}

// ConfirmationOption mutates manager configuration.
type ConfirmationOption func(*ConfirmationManager)

// WithUsedCodeStore replaces the in-memory single-use store, typically with
// the Redis-backed one for multi-replica deployments.
func WithUsedCodeStore(store UsedCodeStore) ConfirmationOption {
	return func(m *ConfirmationManager) {
		if store != nil {
			m.used = store
		}
	}
}

// WithConfirmationClock overrides the time source for tests.
func WithConfirmationClock(now func() time.Time) ConfirmationOption {
	return func(m *ConfirmationManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewConfirmationManager builds a manager keyed by secret. A non-positive
// ttl falls back to DefaultConfirmationTTL.
func NewConfirmationManager(secret []byte, ttl time.Duration, opts ...ConfirmationOption) (*ConfirmationManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("confirmation secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultConfirmationTTL
	}
	manager := &ConfirmationManager{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		used:   NewMemoryUsedCodeStore(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(manager)
	}
	return manager, nil
}

// TTL reports how long issued codes stay valid.
func (m *ConfirmationManager) TTL() time.Duration {
	return m.ttl
}

func (m *ConfirmationManager) mac(state UserState, issuedAt int64) []byte {
	h := hmac.New(sha256.New, m.secret)
	fmt.Fprintf(h, "%d\n%s\n%s\n%s\n%s\n%t", issuedAt, state.ID, state.Username, state.Email, state.Role, state.Elevated)
	return h.Sum(nil)
}

// Issue derives a fresh code for the account state. The code is
// "<unix-ts>.<hex-mac>"; issuing is stateless and may repeat freely.
func (m *ConfirmationManager) Issue(state UserState) (string, error) {
	if state.ID == "" {
		return "", errors.New("user state without id")
	}
	issuedAt := m.now().UTC().Unix()
	return fmt.Sprintf("%d.%s", issuedAt, hex.EncodeToString(m.mac(state, issuedAt))), nil
}

// Check validates code against the current account state and consumes it.
// A false result covers malformed, forged, expired, stale-state and reused
// codes alike; the error is non-nil only when the single-use store fails,
// and the code is still rejected then.
func (m *ConfirmationManager) Check(ctx context.Context, state UserState, code string) (bool, error) {
	code = strings.TrimSpace(code)
	tsPart, macPart, ok := strings.Cut(code, ".")
	if !ok {
		return false, nil
	}
	issuedAt, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return false, nil
	}
	provided, err := hex.DecodeString(macPart)
	if err != nil {
		return false, nil
	}

	now := m.now().UTC()
	issued := time.Unix(issuedAt, 0).UTC()
	if issued.After(now.Add(clockSkewAllowance)) {
		return false, nil
	}
	remaining := m.ttl - now.Sub(issued)
	if remaining <= 0 {
		return false, nil
	}
	if !hmac.Equal(provided, m.mac(state, issuedAt)) {
		return false, nil
	}

	first, err := m.used.Consume(ctx, m.usedKey(code), remaining)
	if err != nil {
		return false, fmt.Errorf("consume confirmation code: %w", err)
	}
	return first, nil
}

// usedKey hashes the code before it reaches the single-use store so the
// store never holds a replayable value.
func (m *ConfirmationManager) usedKey(code string) string {
	key := pbkdf2.Key([]byte(code), m.secret, usedKeyIterations, usedKeyLength, sha256.New)
	return hex.EncodeToString(key)
}
