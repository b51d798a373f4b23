package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reviewdeck/internal/models"
)

func (r *PostgresRepository) CreateCategory(ctx context.Context, name, slug string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if err := validateDisplayName(name); err != nil {
		return models.Category{}, err
	}
	slug, err := normalizeSlug(name, slug)
	if err != nil {
		return models.Category{}, err
	}
	if _, err := r.pool.Exec(ctx, `INSERT INTO categories (slug, name) VALUES ($1, $2)`, slug, name); err != nil {
		return models.Category{}, translatePgError(err)
	}
	return models.Category{Name: name, Slug: slug}, nil
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT slug, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.Slug, &category.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *PostgresRepository) GetCategory(ctx context.Context, slug string) (models.Category, error) {
	var category models.Category
	err := r.pool.QueryRow(ctx, `SELECT slug, name FROM categories WHERE slug = $1`, slug).
		Scan(&category.Slug, &category.Name)
	if noRows(err) {
		return models.Category{}, fmt.Errorf("category %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return models.Category{}, fmt.Errorf("select category: %w", err)
	}
	return category, nil
}

func (r *PostgresRepository) DeleteCategory(ctx context.Context, slug string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE slug = $1`, slug)
	if err != nil {
		return translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %q: %w", slug, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) CreateGenre(ctx context.Context, name, slug string) (models.Genre, error) {
	name = strings.TrimSpace(name)
	if err := validateDisplayName(name); err != nil {
		return models.Genre{}, err
	}
	slug, err := normalizeSlug(name, slug)
	if err != nil {
		return models.Genre{}, err
	}
	if _, err := r.pool.Exec(ctx, `INSERT INTO genres (slug, name) VALUES ($1, $2)`, slug, name); err != nil {
		return models.Genre{}, translatePgError(err)
	}
	return models.Genre{Name: name, Slug: slug}, nil
}

func (r *PostgresRepository) ListGenres(ctx context.Context) ([]models.Genre, error) {
	rows, err := r.pool.Query(ctx, `SELECT slug, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	genres := make([]models.Genre, 0)
	for rows.Next() {
		var genre models.Genre
		if err := rows.Scan(&genre.Slug, &genre.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, genre)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return genres, nil
}

func (r *PostgresRepository) GetGenre(ctx context.Context, slug string) (models.Genre, error) {
	var genre models.Genre
	err := r.pool.QueryRow(ctx, `SELECT slug, name FROM genres WHERE slug = $1`, slug).
		Scan(&genre.Slug, &genre.Name)
	if noRows(err) {
		return models.Genre{}, fmt.Errorf("genre %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return models.Genre{}, fmt.Errorf("select genre: %w", err)
	}
	return genre, nil
}

func (r *PostgresRepository) DeleteGenre(ctx context.Context, slug string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM genres WHERE slug = $1`, slug)
	if err != nil {
		return translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("genre %q: %w", slug, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) titleGenres(ctx context.Context, titleID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT genre_slug FROM title_genres WHERE title_id = $1 ORDER BY genre_slug`, titleID)
	if err != nil {
		return nil, fmt.Errorf("list title genres: %w", err)
	}
	defer rows.Close()

	slugs := make([]string, 0)
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scan title genre: %w", err)
		}
		slugs = append(slugs, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list title genres: %w", err)
	}
	return slugs, nil
}

func (r *PostgresRepository) CreateTitle(ctx context.Context, params TitleParams) (models.Title, error) {
	name := strings.TrimSpace(params.Name)
	if err := validateDisplayName(name); err != nil {
		return models.Title{}, err
	}
	if err := validateYear(params.Year); err != nil {
		return models.Title{}, err
	}
	var categorySlug *string
	if params.CategorySlug != nil {
		if slug := strings.TrimSpace(*params.CategorySlug); slug != "" {
			categorySlug = &slug
		}
	}
	genreSlugs := normalizeGenreSlugs(params.GenreSlugs)
	if len(genreSlugs) == 0 {
		return models.Title{}, fmt.Errorf("at least one genre is required: %w", ErrValidation)
	}

	id, err := generateID()
	if err != nil {
		return models.Title{}, err
	}
	title := models.Title{
		ID:           id,
		Name:         name,
		Year:         params.Year,
		Description:  params.Description,
		CategorySlug: categorySlug,
		GenreSlugs:   genreSlugs,
		CreatedAt:    time.Now().UTC(),
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Title{}, fmt.Errorf("begin title insert: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO titles (id, name, year, description, category_slug, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		title.ID, title.Name, title.Year, title.Description, title.CategorySlug, title.CreatedAt,
	)
	if err != nil {
		return models.Title{}, translatePgError(err)
	}
	for _, slug := range genreSlugs {
		if _, err := tx.Exec(ctx, `INSERT INTO title_genres (title_id, genre_slug) VALUES ($1, $2)`, title.ID, slug); err != nil {
			return models.Title{}, translatePgError(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Title{}, fmt.Errorf("commit title insert: %w", err)
	}
	return title, nil
}

func (r *PostgresRepository) GetTitle(ctx context.Context, id string) (models.Title, error) {
	var title models.Title
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, year, description, category_slug, created_at
		FROM titles WHERE id = $1`, id).
		Scan(&title.ID, &title.Name, &title.Year, &title.Description, &title.CategorySlug, &title.CreatedAt)
	if noRows(err) {
		return models.Title{}, fmt.Errorf("title %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Title{}, fmt.Errorf("select title: %w", err)
	}
	genres, err := r.titleGenres(ctx, id)
	if err != nil {
		return models.Title{}, err
	}
	title.GenreSlugs = genres
	return title, nil
}

func (r *PostgresRepository) ListTitles(ctx context.Context, filter TitleFilter) ([]models.Title, error) {
	query := `
		SELECT DISTINCT t.id, t.name, t.year, t.description, t.category_slug, t.created_at
		FROM titles t`
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 4)
	if filter.GenreSlug != "" {
		query += ` JOIN title_genres tg ON tg.title_id = t.id`
		args = append(args, filter.GenreSlug)
		conditions = append(conditions, fmt.Sprintf("tg.genre_slug = $%d", len(args)))
	}
	if filter.CategorySlug != "" {
		args = append(args, filter.CategorySlug)
		conditions = append(conditions, fmt.Sprintf("t.category_slug = $%d", len(args)))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("t.year = $%d", len(args)))
	}
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conditions = append(conditions, fmt.Sprintf("t.name ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.name, t.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	titles := make([]models.Title, 0)
	for rows.Next() {
		var title models.Title
		if err := rows.Scan(&title.ID, &title.Name, &title.Year, &title.Description, &title.CategorySlug, &title.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	for i := range titles {
		genres, err := r.titleGenres(ctx, titles[i].ID)
		if err != nil {
			return nil, err
		}
		titles[i].GenreSlugs = genres
	}
	return titles, nil
}

func (r *PostgresRepository) UpdateTitle(ctx context.Context, id string, update TitleUpdate) (models.Title, error) {
	title, err := r.GetTitle(ctx, id)
	if err != nil {
		return models.Title{}, err
	}

	updated := title
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if err := validateDisplayName(name); err != nil {
			return models.Title{}, err
		}
		updated.Name = name
	}
	if update.Year != nil {
		if err := validateYear(*update.Year); err != nil {
			return models.Title{}, err
		}
		updated.Year = *update.Year
	}
	if update.Description != nil {
		updated.Description = *update.Description
	}
	if update.CategorySlug != nil {
		if slug := strings.TrimSpace(*update.CategorySlug); slug == "" {
			updated.CategorySlug = nil
		} else {
			updated.CategorySlug = &slug
		}
	}
	if update.GenreSlugs != nil {
		slugs := normalizeGenreSlugs(update.GenreSlugs)
		if len(slugs) == 0 {
			return models.Title{}, fmt.Errorf("at least one genre is required: %w", ErrValidation)
		}
		updated.GenreSlugs = slugs
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Title{}, fmt.Errorf("begin title update: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE titles SET name = $2, year = $3, description = $4, category_slug = $5
		WHERE id = $1`,
		id, updated.Name, updated.Year, updated.Description, updated.CategorySlug,
	)
	if err != nil {
		return models.Title{}, translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.Title{}, fmt.Errorf("title %s: %w", id, ErrNotFound)
	}
	if update.GenreSlugs != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM title_genres WHERE title_id = $1`, id); err != nil {
			return models.Title{}, translatePgError(err)
		}
		for _, slug := range updated.GenreSlugs {
			if _, err := tx.Exec(ctx, `INSERT INTO title_genres (title_id, genre_slug) VALUES ($1, $2)`, id, slug); err != nil {
				return models.Title{}, translatePgError(err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Title{}, fmt.Errorf("commit title update: %w", err)
	}
	return updated, nil
}

func (r *PostgresRepository) DeleteTitle(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM titles WHERE id = $1`, id)
	if err != nil {
		return translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("title %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) TitleRating(ctx context.Context, id string) (float64, bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM titles WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, false, fmt.Errorf("check title: %w", err)
	}
	if !exists {
		return 0, false, fmt.Errorf("title %s: %w", id, ErrNotFound)
	}
	var mean *float64
	err := r.pool.QueryRow(ctx, `SELECT AVG(score)::float8 FROM reviews WHERE title_id = $1`, id).Scan(&mean)
	if err != nil && !noRows(err) {
		return 0, false, fmt.Errorf("average score: %w", err)
	}
	if mean == nil {
		return 0, false, nil
	}
	return *mean, true, nil
}
