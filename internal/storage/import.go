package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reviewdeck/internal/models"
)

// Bulk import entry points backing the CSV loader. Each call applies its
// whole batch to a cloned dataset and swaps it in after a successful persist,
// so an integrity failure leaves the store untouched.

func (s *Storage) ImportUsers(ctx context.Context, users []models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneDataset(s.data)
	for _, user := range users {
		user.Username = strings.TrimSpace(user.Username)
		user.Email = normalizeEmail(user.Email)
		if user.ID == "" {
			return fmt.Errorf("user %q has no id: %w", user.Username, ErrValidation)
		}
		if err := validateUsername(user.Username); err != nil {
			return err
		}
		if err := validateEmail(user.Email); err != nil {
			return err
		}
		if user.Role == "" {
			user.Role = models.RoleUser
		}
		if err := validateRole(user.Role); err != nil {
			return err
		}
		if _, exists := clone.Users[user.ID]; exists {
			return fmt.Errorf("user id %s %w", user.ID, ErrConflict)
		}
		for _, existing := range clone.Users {
			if existing.Username == user.Username {
				return fmt.Errorf("username %q %w", user.Username, ErrConflict)
			}
			if existing.Email == user.Email {
				return fmt.Errorf("email %q %w", user.Email, ErrConflict)
			}
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now().UTC()
		}
		clone.Users[user.ID] = user
	}

	if err := s.persistDataset(clone); err != nil {
		return err
	}
	s.data = clone
	return nil
}

func (s *Storage) ImportCategories(ctx context.Context, categories []models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneDataset(s.data)
	for _, category := range categories {
		if err := validateDisplayName(category.Name); err != nil {
			return err
		}
		if err := validateSlug(category.Slug); err != nil {
			return err
		}
		if _, exists := clone.Categories[category.Slug]; exists {
			return fmt.Errorf("category %q %w", category.Slug, ErrConflict)
		}
		clone.Categories[category.Slug] = category
	}

	if err := s.persistDataset(clone); err != nil {
		return err
	}
	s.data = clone
	return nil
}

func (s *Storage) ImportGenres(ctx context.Context, genres []models.Genre) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneDataset(s.data)
	for _, genre := range genres {
		if err := validateDisplayName(genre.Name); err != nil {
			return err
		}
		if err := validateSlug(genre.Slug); err != nil {
			return err
		}
		if _, exists := clone.Genres[genre.Slug]; exists {
			return fmt.Errorf("genre %q %w", genre.Slug, ErrConflict)
		}
		clone.Genres[genre.Slug] = genre
	}

	if err := s.persistDataset(clone); err != nil {
		return err
	}
	s.data = clone
	return nil
}

// ImportTitles accepts titles without genres: seed dumps may carry the
// title/genre join separately or not at all.
func (s *Storage) ImportTitles(ctx context.Context, titles []models.Title) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneDataset(s.data)
	for _, title := range titles {
		if title.ID == "" {
			return fmt.Errorf("title %q has no id: %w", title.Name, ErrValidation)
		}
		if err := validateDisplayName(title.Name); err != nil {
			return err
		}
		if err := validateYear(title.Year); err != nil {
			return err
		}
		if title.CategorySlug != nil {
			if _, ok := clone.Categories[*title.CategorySlug]; !ok {
				return fmt.Errorf("category %q: %w", *title.CategorySlug, ErrNotFound)
			}
		}
		for _, slug := range title.GenreSlugs {
			if _, ok := clone.Genres[slug]; !ok {
				return fmt.Errorf("genre %q: %w", slug, ErrNotFound)
			}
		}
		if _, exists := clone.Titles[title.ID]; exists {
			return fmt.Errorf("title id %s %w", title.ID, ErrConflict)
		}
		if title.CreatedAt.IsZero() {
			title.CreatedAt = time.Now().UTC()
		}
		clone.Titles[title.ID] = title
	}

	if err := s.persistDataset(clone); err != nil {
		return err
	}
	s.data = clone
	return nil
}

func (s *Storage) ImportReviews(ctx context.Context, reviews []models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneDataset(s.data)
	for _, review := range reviews {
		if review.ID == "" {
			return fmt.Errorf("review has no id: %w", ErrValidation)
		}
		if err := validateReviewText(review.Text); err != nil {
			return err
		}
		if err := validateScore(review.Score); err != nil {
			return err
		}
		if _, ok := clone.Titles[review.TitleID]; !ok {
			return fmt.Errorf("title %s: %w", review.TitleID, ErrNotFound)
		}
		if _, ok := clone.Users[review.AuthorID]; !ok {
			return fmt.Errorf("user %s: %w", review.AuthorID, ErrNotFound)
		}
		if _, exists := clone.Reviews[review.ID]; exists {
			return fmt.Errorf("review id %s %w", review.ID, ErrConflict)
		}
		for _, existing := range clone.Reviews {
			if existing.TitleID == review.TitleID && existing.AuthorID == review.AuthorID {
				return fmt.Errorf("review of title %s by user %s %w", review.TitleID, review.AuthorID, ErrConflict)
			}
		}
		if review.CreatedAt.IsZero() {
			review.CreatedAt = time.Now().UTC()
		}
		clone.Reviews[review.ID] = review
	}

	if err := s.persistDataset(clone); err != nil {
		return err
	}
	s.data = clone
	return nil
}

func (s *Storage) ImportComments(ctx context.Context, comments []models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := cloneDataset(s.data)
	for _, comment := range comments {
		if comment.ID == "" {
			return fmt.Errorf("comment has no id: %w", ErrValidation)
		}
		if err := validateCommentText(comment.Text); err != nil {
			return err
		}
		if _, ok := clone.Reviews[comment.ReviewID]; !ok {
			return fmt.Errorf("review %s: %w", comment.ReviewID, ErrNotFound)
		}
		if _, ok := clone.Users[comment.AuthorID]; !ok {
			return fmt.Errorf("user %s: %w", comment.AuthorID, ErrNotFound)
		}
		if _, exists := clone.Comments[comment.ID]; exists {
			return fmt.Errorf("comment id %s %w", comment.ID, ErrConflict)
		}
		if comment.CreatedAt.IsZero() {
			comment.CreatedAt = time.Now().UTC()
		}
		clone.Comments[comment.ID] = comment
	}

	if err := s.persistDataset(clone); err != nil {
		return err
	}
	s.data = clone
	return nil
}
