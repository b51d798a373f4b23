package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func signupCode(t *testing.T, mailer *captureMailer) string {
	t.Helper()
	fields := strings.Fields(mailer.body)
	if len(fields) == 0 {
		t.Fatalf("expected confirmation code in mail body %q", mailer.body)
	}
	return fields[len(fields)-1]
}

func TestSignupCreatesAccountAndMailsCode(t *testing.T) {
	handler, mailer := newTestHandler(t)

	req := jsonRequest(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
	})
	rr := httptest.NewRecorder()
	handler.Signup(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload map[string]string
	decodeBody(t, rr, &payload)
	if payload["username"] != "alice" || payload["email"] != "alice@example.com" {
		t.Fatalf("unexpected echo %v", payload)
	}
	if mailer.to != "alice@example.com" {
		t.Fatalf("expected mail to alice@example.com, got %q", mailer.to)
	}
	if signupCode(t, mailer) == "" {
		t.Fatal("expected a confirmation code in the mail body")
	}
}

func TestSignupIdempotentForExactPair(t *testing.T) {
	handler, mailer := newTestHandler(t)
	body := map[string]string{"username": "alice", "email": "alice@example.com"}

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.Signup(rr, jsonRequest(t, http.MethodPost, "/api/auth/signup", body))
		if rr.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d: %s", i, rr.Code, rr.Body.String())
		}
	}
	if mailer.body == "" {
		t.Fatal("expected a fresh code on the repeat signup")
	}
}

func TestSignupConflicts(t *testing.T) {
	handler, _ := newTestHandler(t)

	rr := httptest.NewRecorder()
	handler.Signup(rr, jsonRequest(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "alice", "email": "alice@example.com",
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("seed signup failed: %d", rr.Code)
	}

	cases := []struct {
		name string
		body map[string]string
		want int
	}{
		{name: "username taken", body: map[string]string{"username": "alice", "email": "other@example.com"}, want: http.StatusConflict},
		{name: "email taken", body: map[string]string{"username": "bob", "email": "alice@example.com"}, want: http.StatusConflict},
		{name: "reserved username", body: map[string]string{"username": "me", "email": "me@example.com"}, want: http.StatusBadRequest},
		{name: "bad username", body: map[string]string{"username": "no spaces", "email": "x@example.com"}, want: http.StatusBadRequest},
		{name: "bad email", body: map[string]string{"username": "carol", "email": "not-an-email"}, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.Signup(rr, jsonRequest(t, http.MethodPost, "/api/auth/signup", tc.body))
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestTokenExchange(t *testing.T) {
	handler, mailer := newTestHandler(t)

	rr := httptest.NewRecorder()
	handler.Signup(rr, jsonRequest(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "alice", "email": "alice@example.com",
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("signup failed: %d", rr.Code)
	}
	code := signupCode(t, mailer)

	rr = httptest.NewRecorder()
	handler.Token(rr, jsonRequest(t, http.MethodPost, "/api/auth/token", map[string]string{
		"username": "alice", "confirmation_code": code,
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var payload map[string]string
	decodeBody(t, rr, &payload)
	if payload["token"] == "" {
		t.Fatal("expected a token in the response")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+payload["token"])
	user, err := handler.AuthenticateRequest(req)
	if err != nil {
		t.Fatalf("AuthenticateRequest: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("expected alice, got %q", user.Username)
	}

	// Codes are single use.
	rr = httptest.NewRecorder()
	handler.Token(rr, jsonRequest(t, http.MethodPost, "/api/auth/token", map[string]string{
		"username": "alice", "confirmation_code": code,
	}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected reused code to fail with 400, got %d", rr.Code)
	}
}

func TestTokenRejectsUnknownUserAndBadCode(t *testing.T) {
	handler, _ := newTestHandler(t)
	createTestUser(t, handler, "alice", "user")

	rr := httptest.NewRecorder()
	handler.Token(rr, jsonRequest(t, http.MethodPost, "/api/auth/token", map[string]string{
		"username": "ghost", "confirmation_code": "1.abcd",
	}))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown username, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.Token(rr, jsonRequest(t, http.MethodPost, "/api/auth/token", map[string]string{
		"username": "alice", "confirmation_code": "1.abcd",
	}))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad code, got %d", rr.Code)
	}
}

func TestAuthEndpointsRejectWrongMethod(t *testing.T) {
	handler, _ := newTestHandler(t)

	rr := httptest.NewRecorder()
	handler.Signup(rr, httptest.NewRequest(http.MethodGet, "/api/auth/signup", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.Token(rr, httptest.NewRequest(http.MethodGet, "/api/auth/token", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}
