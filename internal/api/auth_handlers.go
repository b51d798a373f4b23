package api

import (
	"fmt"
	"net/http"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Signup registers an account (or re-recognizes an existing one on an exact
// username/email match) and mails a confirmation code. Delivery failures are
// logged and swallowed so the caller can retry signup for a fresh code.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, created, err := h.Store.GetOrCreateUser(r.Context(), req.Username, req.Email)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if created {
		h.logger().Info("account created via signup", "username", user.Username)
	}

	code, err := h.Codes.Issue(userState(user))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("issue confirmation code: %w", err))
		return
	}
	h.recorder().ObserveAuthEvent("signup")

	body := fmt.Sprintf("Use this confirmation code to request an access token: %s", code)
	if err := h.Mailer.Send(r.Context(), user.Email, "Your reviewdeck confirmation code", body); err != nil {
		h.logger().Warn("confirmation code delivery failed", "username", user.Username, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"username": user.Username,
		"email":    user.Email,
	})
}

type tokenRequest struct {
	Username         string `json:"username"`
	ConfirmationCode string `json:"confirmation_code"`
}

// Token exchanges a valid confirmation code for a signed access token. An
// unknown username is 404; a bad, expired, or reused code is 400.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.Store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	ok, err := h.Codes.Check(r.Context(), userState(user), req.ConfirmationCode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("verify confirmation code: %w", err))
		return
	}
	if !ok {
		h.recorder().ObserveAuthEvent("token_rejected")
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid confirmation code"))
		return
	}

	token, err := h.Tokens.Issue(userState(user))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("issue token: %w", err))
		return
	}
	h.recorder().ObserveAuthEvent("token_issued")
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
