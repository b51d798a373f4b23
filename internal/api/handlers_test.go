package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"reviewdeck/internal/auth"
	"reviewdeck/internal/models"
	"reviewdeck/internal/observability/metrics"
	"reviewdeck/internal/storage"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// captureMailer records the last message so tests can fish the confirmation
// code out of the signup mail.
type captureMailer struct {
	to      string
	subject string
	body    string
}

func (m *captureMailer) Send(_ context.Context, to, subject, body string) error {
	m.to = to
	m.subject = subject
	m.body = body
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *captureMailer) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	codes, err := auth.NewConfirmationManager(testSecret, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewConfirmationManager: %v", err)
	}
	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	mailer := &captureMailer{}
	handler := NewHandler(store, codes, tokens, mailer)
	handler.Metrics = metrics.New()
	handler.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return handler, mailer
}

func createTestUser(t *testing.T, h *Handler, username, role string) models.User {
	t.Helper()
	user, err := h.Store.CreateUser(context.Background(), storage.CreateUserParams{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return user
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	return httptest.NewRequest(method, target, body)
}

func requestAs(t *testing.T, user models.User, method, target string, payload interface{}) *http.Request {
	t.Helper()
	req := jsonRequest(t, method, target, payload)
	return req.WithContext(ContextWithUser(req.Context(), user))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{name: "missing", header: "", want: ""},
		{name: "bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "case insensitive", header: "bearer token123", want: "token123"},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "no token", header: "Bearer", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if got := ExtractToken(req); got != tc.want {
				t.Fatalf("ExtractToken = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHealthReportsDatastore(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	handler.Health(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload struct {
		Status     string            `json:"status"`
		Components []componentStatus `json:"components"`
	}
	decodeBody(t, rr, &payload)
	if payload.Status != "ok" {
		t.Fatalf("expected ok status, got %q", payload.Status)
	}
	if len(payload.Components) == 0 || payload.Components[0].Component != "datastore" {
		t.Fatalf("expected datastore component, got %+v", payload.Components)
	}
}

func TestAuthenticateRequestRoundTrip(t *testing.T) {
	handler, _ := newTestHandler(t)
	user := createTestUser(t, handler, "alice", models.RoleUser)

	token, err := handler.Tokens.Issue(userState(user))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	got, err := handler.AuthenticateRequest(req)
	if err != nil {
		t.Fatalf("AuthenticateRequest: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %q, got %q", user.ID, got.ID)
	}

	req.Header.Set("Authorization", "Bearer not-a-token")
	if _, err := handler.AuthenticateRequest(req); err == nil {
		t.Fatal("expected invalid token to fail")
	}
}

func TestCanModerateAuthored(t *testing.T) {
	author := models.User{ID: "u1", Role: models.RoleUser}
	other := models.User{ID: "u2", Role: models.RoleUser}
	moderator := models.User{ID: "u3", Role: models.RoleModerator}
	admin := models.User{ID: "u4", Role: models.RoleAdmin}
	staff := models.User{ID: "u5", Role: models.RoleUser, Staff: true}

	cases := []struct {
		name  string
		actor models.User
		want  bool
	}{
		{name: "author", actor: author, want: true},
		{name: "unrelated user", actor: other, want: false},
		{name: "moderator", actor: moderator, want: true},
		{name: "admin", actor: admin, want: true},
		{name: "staff flag", actor: staff, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := canModerateAuthored(tc.actor, author.ID); got != tc.want {
				t.Fatalf("canModerateAuthored = %v, want %v", got, tc.want)
			}
		})
	}
}
