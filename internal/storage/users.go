package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"reviewdeck/internal/models"
)

func (s *Storage) findUserByUsernameLocked(username string) (models.User, bool) {
	for _, user := range s.data.Users {
		if user.Username == username {
			return user, true
		}
	}
	return models.User{}, false
}

func (s *Storage) findUserByEmailLocked(email string) (models.User, bool) {
	for _, user := range s.data.Users {
		if user.Email == email {
			return user, true
		}
	}
	return models.User{}, false
}

// CreateUser registers an account with explicit attributes. Used by the admin
// API and the bootstrap tooling; self-signup goes through GetOrCreateUser.
func (s *Storage) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	username := strings.TrimSpace(params.Username)
	email := normalizeEmail(params.Email)
	if err := validateUsername(username); err != nil {
		return models.User{}, err
	}
	if err := validateEmail(email); err != nil {
		return models.User{}, err
	}
	role := params.Role
	if role == "" {
		role = models.RoleUser
	}
	if err := validateRole(role); err != nil {
		return models.User{}, err
	}
	if err := validateProfileFields(params.FirstName, params.LastName, params.Bio); err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.findUserByUsernameLocked(username); exists {
		return models.User{}, fmt.Errorf("username %q %w", username, ErrConflict)
	}
	if _, exists := s.findUserByEmailLocked(email); exists {
		return models.User{}, fmt.Errorf("email %q %w", email, ErrConflict)
	}

	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		ID:        id,
		Username:  username,
		Email:     email,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Bio:       params.Bio,
		Role:      role,
		Superuser: params.Superuser,
		Staff:     params.Staff,
		CreatedAt: time.Now().UTC(),
	}
	s.data.Users[id] = user
	if err := s.persist(); err != nil {
		delete(s.data.Users, id)
		return models.User{}, err
	}
	return user, nil
}

// GetOrCreateUser implements the signup contract: repeating an exact
// (username, email) pair is idempotent, reusing either half of the pair with
// a different counterpart is a conflict.
func (s *Storage) GetOrCreateUser(ctx context.Context, username, email string) (models.User, bool, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if err := validateUsername(username); err != nil {
		return models.User{}, false, err
	}
	if err := validateEmail(email); err != nil {
		return models.User{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if user, exists := s.findUserByUsernameLocked(username); exists {
		if user.Email == email {
			return user, false, nil
		}
		return models.User{}, false, fmt.Errorf("username %q %w", username, ErrConflict)
	}
	if _, exists := s.findUserByEmailLocked(email); exists {
		return models.User{}, false, fmt.Errorf("email %q %w", email, ErrConflict)
	}

	id, err := generateID()
	if err != nil {
		return models.User{}, false, err
	}
	user := models.User{
		ID:        id,
		Username:  username,
		Email:     email,
		Role:      models.RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	s.data.Users[id] = user
	if err := s.persist(); err != nil {
		delete(s.data.Users, id)
		return models.User{}, false, err
	}
	return user, true, nil
}

func (s *Storage) GetUser(ctx context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return user, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.findUserByUsernameLocked(username)
	if !ok {
		return models.User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return user, nil
}

// ListUsers returns every account ordered by username.
func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.data.Users))
	for _, user := range s.data.Users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Storage) UpdateUser(ctx context.Context, id string, update UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	updated := user
	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if err := validateUsername(username); err != nil {
			return models.User{}, err
		}
		if other, exists := s.findUserByUsernameLocked(username); exists && other.ID != id {
			return models.User{}, fmt.Errorf("username %q %w", username, ErrConflict)
		}
		updated.Username = username
	}
	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if err := validateEmail(email); err != nil {
			return models.User{}, err
		}
		if other, exists := s.findUserByEmailLocked(email); exists && other.ID != id {
			return models.User{}, fmt.Errorf("email %q %w", email, ErrConflict)
		}
		updated.Email = email
	}
	if update.FirstName != nil {
		updated.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		updated.LastName = *update.LastName
	}
	if update.Bio != nil {
		updated.Bio = *update.Bio
	}
	if update.Role != nil {
		if err := validateRole(*update.Role); err != nil {
			return models.User{}, err
		}
		updated.Role = *update.Role
	}
	if update.Superuser != nil {
		updated.Superuser = *update.Superuser
	}
	if update.Staff != nil {
		updated.Staff = *update.Staff
	}
	if err := validateProfileFields(updated.FirstName, updated.LastName, updated.Bio); err != nil {
		return models.User{}, err
	}

	s.data.Users[id] = updated
	if err := s.persist(); err != nil {
		s.data.Users[id] = user
		return models.User{}, err
	}
	return updated, nil
}

// DeleteUser removes the account together with its reviews, the comments on
// those reviews, and its comments elsewhere.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	clone := cloneDataset(s.data)
	delete(clone.Users, id)
	for reviewID, review := range clone.Reviews {
		if review.AuthorID != id {
			continue
		}
		delete(clone.Reviews, reviewID)
		for commentID, comment := range clone.Comments {
			if comment.ReviewID == reviewID {
				delete(clone.Comments, commentID)
			}
		}
	}
	for commentID, comment := range clone.Comments {
		if comment.AuthorID == id {
			delete(clone.Comments, commentID)
		}
	}

	if err := s.persistDataset(clone); err != nil {
		return err
	}
	s.data = clone
	return nil
}
