package storage

import (
	"context"

	"reviewdeck/internal/models"
)

// Repository exposes the datastore operations required by API handlers and
// the CSV import tooling. Two implementations exist: the JSON-file Storage
// used in development and tests, and PostgresRepository for production.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)
	// GetOrCreateUser backs self-signup: an exact (username, email) match
	// returns the existing account, a partial match is a conflict, and an
	// unknown pair creates a fresh account with the default role. The bool
	// reports whether a new account was created.
	GetOrCreateUser(ctx context.Context, username, email string) (models.User, bool, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (models.User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateCategory(ctx context.Context, name, slug string) (models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, slug string) (models.Category, error)
	DeleteCategory(ctx context.Context, slug string) error

	CreateGenre(ctx context.Context, name, slug string) (models.Genre, error)
	ListGenres(ctx context.Context) ([]models.Genre, error)
	GetGenre(ctx context.Context, slug string) (models.Genre, error)
	DeleteGenre(ctx context.Context, slug string) error

	CreateTitle(ctx context.Context, params TitleParams) (models.Title, error)
	GetTitle(ctx context.Context, id string) (models.Title, error)
	ListTitles(ctx context.Context, filter TitleFilter) ([]models.Title, error)
	UpdateTitle(ctx context.Context, id string, update TitleUpdate) (models.Title, error)
	DeleteTitle(ctx context.Context, id string) error
	// TitleRating returns the mean review score for a title. The bool is
	// false when the title has no reviews yet.
	TitleRating(ctx context.Context, id string) (float64, bool, error)

	CreateReview(ctx context.Context, params ReviewParams) (models.Review, error)
	GetReview(ctx context.Context, titleID, reviewID string) (models.Review, error)
	ListReviews(ctx context.Context, titleID string) ([]models.Review, error)
	UpdateReview(ctx context.Context, reviewID string, update ReviewUpdate) (models.Review, error)
	DeleteReview(ctx context.Context, reviewID string) error

	CreateComment(ctx context.Context, params CommentParams) (models.Comment, error)
	GetComment(ctx context.Context, reviewID, commentID string) (models.Comment, error)
	ListComments(ctx context.Context, reviewID string) ([]models.Comment, error)
	UpdateComment(ctx context.Context, commentID string, update CommentUpdate) (models.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error

	// Bulk import used by the CSV loader. Each call is atomic: either every
	// record lands or none do.
	ImportUsers(ctx context.Context, users []models.User) error
	ImportCategories(ctx context.Context, categories []models.Category) error
	ImportGenres(ctx context.Context, genres []models.Genre) error
	ImportTitles(ctx context.Context, titles []models.Title) error
	ImportReviews(ctx context.Context, reviews []models.Review) error
	ImportComments(ctx context.Context, comments []models.Comment) error
}

// CreateUserParams captures the attributes an administrator can set when
// creating an account.
type CreateUserParams struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Bio       string
	Role      string
	Superuser bool
	Staff     bool
}

// UserUpdate describes a partial user update. Nil fields are left unchanged.
type UserUpdate struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
	Role      *string
	Superuser *bool
	Staff     *bool
}

// TitleParams captures the attributes needed to create a title. CategorySlug
// may be nil; GenreSlugs must name at least one existing genre.
type TitleParams struct {
	Name         string
	Year         int
	Description  string
	CategorySlug *string
	GenreSlugs   []string
}

// TitleUpdate describes a partial title update. Nil fields are left
// unchanged; a non-nil CategorySlug pointing at an empty string clears the
// category.
type TitleUpdate struct {
	Name         *string
	Year         *int
	Description  *string
	CategorySlug *string
	GenreSlugs   []string
}

// TitleFilter narrows ListTitles. Zero-valued fields are ignored.
type TitleFilter struct {
	CategorySlug string
	GenreSlug    string
	Name         string
	Year         int
}

// ReviewParams captures the attributes needed to create a review.
type ReviewParams struct {
	TitleID  string
	AuthorID string
	Text     string
	Score    int
}

// ReviewUpdate describes a partial review update.
type ReviewUpdate struct {
	Text  *string
	Score *int
}

// CommentParams captures the attributes needed to create a comment.
type CommentParams struct {
	ReviewID string
	AuthorID string
	Text     string
}

// CommentUpdate describes a partial comment update.
type CommentUpdate struct {
	Text *string
}
