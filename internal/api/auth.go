package api

import (
	"context"
	"fmt"
	"net/http"

	"reviewdeck/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticatedUser"

// ContextWithUser stores the authenticated user in the provided context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext retrieves the authenticated user from context if present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// AuthenticateRequest verifies the bearer token on the request and loads the
// account it was issued to.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.User, error) {
	token := ExtractToken(r)
	if token == "" {
		return models.User{}, fmt.Errorf("missing access token")
	}
	claims, err := h.Tokens.Verify(token)
	if err != nil {
		return models.User{}, fmt.Errorf("invalid or expired token")
	}
	user, err := h.Store.GetUser(r.Context(), claims.Subject)
	if err != nil {
		return models.User{}, fmt.Errorf("account not found")
	}
	return user, nil
}

func (h *Handler) requireAuthenticatedUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return models.User{}, false
	}
	return user, true
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return models.User{}, false
	}
	if !user.IsAdmin() {
		WriteError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
		return models.User{}, false
	}
	return user, true
}

// canModerateAuthored reports whether actor may edit or delete content
// written by the given author.
func canModerateAuthored(actor models.User, authorID string) bool {
	if actor.ID == authorID {
		return true
	}
	return actor.IsAdmin() || actor.IsModerator()
}

// ensureAuthoredAccess gates review/comment mutation: the author, moderators,
// and admins pass.
func (h *Handler) ensureAuthoredAccess(w http.ResponseWriter, r *http.Request, authorID string) (models.User, bool) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return models.User{}, false
	}
	if !canModerateAuthored(user, authorID) {
		WriteError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
		return models.User{}, false
	}
	return user, true
}
