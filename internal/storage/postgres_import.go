package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"reviewdeck/internal/models"
)

// Bulk import via COPY. Each batch runs in one transaction so an integrity
// violation rolls the whole file back.

func (r *PostgresRepository) copyIn(ctx context.Context, table string, columns []string, rows [][]any) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s import: %w", table, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows)); err != nil {
		return translatePgError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s import: %w", table, err)
	}
	return nil
}

func importCreatedAt(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at
}

func (r *PostgresRepository) ImportUsers(ctx context.Context, users []models.User) error {
	rows := make([][]any, 0, len(users))
	for _, user := range users {
		username := user.Username
		email := normalizeEmail(user.Email)
		if user.ID == "" {
			return fmt.Errorf("user %q has no id: %w", username, ErrValidation)
		}
		if err := validateUsername(username); err != nil {
			return err
		}
		if err := validateEmail(email); err != nil {
			return err
		}
		role := user.Role
		if role == "" {
			role = models.RoleUser
		}
		if err := validateRole(role); err != nil {
			return err
		}
		rows = append(rows, []any{
			user.ID, username, email, user.FirstName, user.LastName,
			user.Bio, role, user.Superuser, user.Staff, importCreatedAt(user.CreatedAt),
		})
	}
	return r.copyIn(ctx, "users",
		[]string{"id", "username", "email", "first_name", "last_name", "bio", "role", "is_superuser", "is_staff", "created_at"},
		rows)
}

func (r *PostgresRepository) ImportCategories(ctx context.Context, categories []models.Category) error {
	rows := make([][]any, 0, len(categories))
	for _, category := range categories {
		if err := validateDisplayName(category.Name); err != nil {
			return err
		}
		if err := validateSlug(category.Slug); err != nil {
			return err
		}
		rows = append(rows, []any{category.Slug, category.Name})
	}
	return r.copyIn(ctx, "categories", []string{"slug", "name"}, rows)
}

func (r *PostgresRepository) ImportGenres(ctx context.Context, genres []models.Genre) error {
	rows := make([][]any, 0, len(genres))
	for _, genre := range genres {
		if err := validateDisplayName(genre.Name); err != nil {
			return err
		}
		if err := validateSlug(genre.Slug); err != nil {
			return err
		}
		rows = append(rows, []any{genre.Slug, genre.Name})
	}
	return r.copyIn(ctx, "genres", []string{"slug", "name"}, rows)
}

func (r *PostgresRepository) ImportTitles(ctx context.Context, titles []models.Title) error {
	titleRows := make([][]any, 0, len(titles))
	genreRows := make([][]any, 0)
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
		titleRows = append(titleRows, []any{
			title.ID, title.Name, title.Year, title.Description,
			title.CategorySlug, importCreatedAt(title.CreatedAt),
		})
		for _, slug := range title.GenreSlugs {
			genreRows = append(genreRows, []any{title.ID, slug})
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin titles import: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"titles"},
		[]string{"id", "name", "year", "description", "category_slug", "created_at"},
		pgx.CopyFromRows(titleRows)); err != nil {
		return translatePgError(err)
	}
	if len(genreRows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"title_genres"},
			[]string{"title_id", "genre_slug"},
			pgx.CopyFromRows(genreRows)); err != nil {
			return translatePgError(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit titles import: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ImportReviews(ctx context.Context, reviews []models.Review) error {
	rows := make([][]any, 0, len(reviews))
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
		rows = append(rows, []any{
			review.ID, review.TitleID, review.AuthorID, review.Text,
			review.Score, importCreatedAt(review.CreatedAt),
		})
	}
	return r.copyIn(ctx, "reviews",
		[]string{"id", "title_id", "author_id", "text", "score", "created_at"},
		rows)
}

func (r *PostgresRepository) ImportComments(ctx context.Context, comments []models.Comment) error {
	rows := make([][]any, 0, len(comments))
	for _, comment := range comments {
		if comment.ID == "" {
			return fmt.Errorf("comment has no id: %w", ErrValidation)
		}
		if err := validateCommentText(comment.Text); err != nil {
			return err
		}
		rows = append(rows, []any{
			comment.ID, comment.ReviewID, comment.AuthorID, comment.Text,
			importCreatedAt(comment.CreatedAt),
		})
	}
	return r.copyIn(ctx, "comments",
		[]string{"id", "review_id", "author_id", "text", "created_at"},
		rows)
}
