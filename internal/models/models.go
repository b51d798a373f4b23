package models

import (
	"strings"
	"time"
)

// Roles a user account can hold. Elevated flags (Superuser, Staff) grant
// admin rights independently of the role field.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// ValidRole reports whether role is one of the recognised account roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is a registered account. Username and Email are unique across the
// datastore; Role defaults to RoleUser.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Role      string    `json:"role"`
	Superuser bool      `json:"superuser,omitempty"`
	Staff     bool      `json:"staff,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user holds full administrative rights, either
// through the admin role or through an elevated flag.
func (u User) IsAdmin() bool {
	return strings.EqualFold(u.Role, RoleAdmin) || u.Superuser || u.Staff
}

// IsModerator reports whether the user holds the moderator role. Admins are
// not implicitly moderators; callers combine both checks where needed.
func (u User) IsModerator() bool {
	return strings.EqualFold(u.Role, RoleModerator)
}

// Category is a single classification bucket for titles (film, book, ...).
// Keyed by Slug.
type Category struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Genre tags a title; a title carries one or more genres. Keyed by Slug.
type Genre struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Title is a catalogue entry users review. CategorySlug is nil when the
// title has no category or its category was deleted.
type Title struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Year         int       `json:"year"`
	Description  string    `json:"description,omitempty"`
	CategorySlug *string   `json:"categorySlug,omitempty"`
	GenreSlugs   []string  `json:"genreSlugs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Review is a scored write-up of a title. Each author may hold at most one
// review per title.
type Review struct {
	ID        string    `json:"id"`
	TitleID   string    `json:"titleId"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a reply attached to a review.
type Comment struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"reviewId"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
