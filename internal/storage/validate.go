package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"reviewdeck/internal/models"
)

const (
	usernameMaxLength    = 150
	emailMaxLength       = 254
	personNameMaxLength  = 150
	bioMaxLength         = 500
	displayNameMaxLength = 256
	slugMaxLength        = 50
	reviewTextMaxLength  = 5000
	commentTextMaxLength = 2000
	scoreMin             = 1
	scoreMax             = 10
)

// reservedUsername collides with the /api/users/me self-service route.
const reservedUsername = "me"

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username is required: %w", ErrValidation)
	}
	if len(username) > usernameMaxLength {
		return fmt.Errorf("username exceeds %d characters: %w", usernameMaxLength, ErrValidation)
	}
	if strings.EqualFold(username, reservedUsername) {
		return fmt.Errorf("username %q is reserved: %w", username, ErrValidation)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("username may only contain letters, digits and .@+-: %w", ErrValidation)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required: %w", ErrValidation)
	}
	if len(email) > emailMaxLength {
		return fmt.Errorf("email exceeds %d characters: %w", emailMaxLength, ErrValidation)
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("email %q is malformed: %w", email, ErrValidation)
	}
	return nil
}

func validateRole(role string) error {
	if !models.ValidRole(role) {
		return fmt.Errorf("unknown role %q: %w", role, ErrValidation)
	}
	return nil
}

func validateProfileFields(firstName, lastName, bio string) error {
	if len(firstName) > personNameMaxLength {
		return fmt.Errorf("first name exceeds %d characters: %w", personNameMaxLength, ErrValidation)
	}
	if len(lastName) > personNameMaxLength {
		return fmt.Errorf("last name exceeds %d characters: %w", personNameMaxLength, ErrValidation)
	}
	if len(bio) > bioMaxLength {
		return fmt.Errorf("bio exceeds %d characters: %w", bioMaxLength, ErrValidation)
	}
	return nil
}

func validateDisplayName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required: %w", ErrValidation)
	}
	if len(name) > displayNameMaxLength {
		return fmt.Errorf("name exceeds %d characters: %w", displayNameMaxLength, ErrValidation)
	}
	return nil
}

func validateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug is required: %w", ErrValidation)
	}
	if len(slug) > slugMaxLength {
		return fmt.Errorf("slug exceeds %d characters: %w", slugMaxLength, ErrValidation)
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("slug %q may only contain letters, digits, hyphens and underscores: %w", slug, ErrValidation)
	}
	return nil
}

func validateYear(year int) error {
	if year <= 0 {
		return fmt.Errorf("year is required: %w", ErrValidation)
	}
	if current := time.Now().UTC().Year(); year > current {
		return fmt.Errorf("year %d is in the future: %w", year, ErrValidation)
	}
	return nil
}

func validateScore(score int) error {
	if score < scoreMin || score > scoreMax {
		return fmt.Errorf("score must be between %d and %d: %w", scoreMin, scoreMax, ErrValidation)
	}
	return nil
}

func validateReviewText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("review text is required: %w", ErrValidation)
	}
	if len(text) > reviewTextMaxLength {
		return fmt.Errorf("review text exceeds %d characters: %w", reviewTextMaxLength, ErrValidation)
	}
	return nil
}

func validateCommentText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("comment text is required: %w", ErrValidation)
	}
	if len(text) > commentTextMaxLength {
		return fmt.Errorf("comment text exceeds %d characters: %w", commentTextMaxLength, ErrValidation)
	}
	return nil
}
