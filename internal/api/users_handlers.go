package api

import (
	"fmt"
	"net/http"
	"strings"

	"reviewdeck/internal/storage"
)

type createUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
	Superuser bool   `json:"is_superuser"`
	Staff     bool   `json:"is_staff"`
}

type adminUserUpdateRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role"`
	Superuser *bool   `json:"is_superuser"`
	Staff     *bool   `json:"is_staff"`
}

// selfUpdateRequest intentionally has no role or flag fields: the strict
// decoder rejects attempts to escalate through /api/users/me.
type selfUpdateRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
}

// Users handles the admin-only collection endpoints.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		users, err := h.Store.ListUsers(r.Context())
		if err != nil {
			writeStorageError(w, err)
			return
		}
		responses := make([]userResponse, 0, len(users))
		for _, user := range users {
			responses = append(responses, newUserResponse(user))
		}
		writeJSON(w, http.StatusOK, responses)
	case http.MethodPost:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		var req createUserRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := h.Store.CreateUser(r.Context(), storage.CreateUserParams{
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Bio:       req.Bio,
			Role:      req.Role,
			Superuser: req.Superuser,
			Staff:     req.Staff,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newUserResponse(user))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// UserByUsername routes /api/users/{username}. The reserved segment "me"
// resolves to the authenticated account with a reduced update surface; all
// other usernames are admin-only.
func (h *Handler) UserByUsername(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/users/")
	if len(segments) != 1 {
		writeError(w, http.StatusNotFound, fmt.Errorf("user not found"))
		return
	}
	username := segments[0]
	if strings.EqualFold(username, "me") {
		h.self(w, r)
		return
	}

	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	user, err := h.Store.GetUserByUsername(r.Context(), username)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, newUserResponse(user))
	case http.MethodPatch:
		var req adminUserUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.Store.UpdateUser(r.Context(), user.ID, storage.UserUpdate{
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Bio:       req.Bio,
			Role:      req.Role,
			Superuser: req.Superuser,
			Staff:     req.Staff,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newUserResponse(updated))
	case http.MethodDelete:
		if err := h.Store.DeleteUser(r.Context(), user.ID); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (h *Handler) self(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, newUserResponse(user))
	case http.MethodPatch:
		var req selfUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.Store.UpdateUser(r.Context(), user.ID, storage.UserUpdate{
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Bio:       req.Bio,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newUserResponse(updated))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch)
	}
}
