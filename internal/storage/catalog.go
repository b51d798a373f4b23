package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"reviewdeck/internal/models"
)

func normalizeSlug(name, slug string) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if err := validateSlug(slug); err != nil {
		return "", err
	}
	return slug, nil
}

// CreateCategory adds a classification bucket. An empty slug is derived from
// the name.
func (s *Storage) CreateCategory(ctx context.Context, name, slug string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if err := validateDisplayName(name); err != nil {
		return models.Category{}, err
	}
	slug, err := normalizeSlug(name, slug)
	if err != nil {
		return models.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.Categories[slug]; exists {
		return models.Category{}, fmt.Errorf("category %q %w", slug, ErrConflict)
	}
	category := models.Category{Name: name, Slug: slug}
	s.data.Categories[slug] = category
	if err := s.persist(); err != nil {
		delete(s.data.Categories, slug)
		return models.Category{}, err
	}
	return category, nil
}

func (s *Storage) ListCategories(ctx context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	categories := make([]models.Category, 0, len(s.data.Categories))
	for _, category := range s.data.Categories {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (s *Storage) GetCategory(ctx context.Context, slug string) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	category, ok := s.data.Categories[slug]
	if !ok {
		return models.Category{}, fmt.Errorf("category %q: %w", slug, ErrNotFound)
	}
	return category, nil
}

// DeleteCategory removes the bucket and detaches it from titles; the titles
// themselves survive without a category.
func (s *Storage) DeleteCategory(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Categories[slug]; !ok {
		return fmt.Errorf("category %q: %w", slug, ErrNotFound)
	}

	clone := cloneDataset(s.data)
	delete(clone.Categories, slug)
	for id, title := range clone.Titles {
		if title.CategorySlug != nil && *title.CategorySlug == slug {
			title.CategorySlug = nil
			clone.Titles[id] = title
		}
	}

	if err := s.persistDataset(clone); err != nil {
		return err
	}
	s.data = clone
	return nil
}

// CreateGenre adds a genre tag. An empty slug is derived from the name.
func (s *Storage) CreateGenre(ctx context.Context, name, slug string) (models.Genre, error) {
	name = strings.TrimSpace(name)
	if err := validateDisplayName(name); err != nil {
		return models.Genre{}, err
	}
	slug, err := normalizeSlug(name, slug)
	if err != nil {
		return models.Genre{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data.Genres[slug]; exists {
		return models.Genre{}, fmt.Errorf("genre %q %w", slug, ErrConflict)
	}
	genre := models.Genre{Name: name, Slug: slug}
	s.data.Genres[slug] = genre
	if err := s.persist(); err != nil {
		delete(s.data.Genres, slug)
		return models.Genre{}, err
	}
	return genre, nil
}

func (s *Storage) ListGenres(ctx context.Context) ([]models.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	genres := make([]models.Genre, 0, len(s.data.Genres))
	for _, genre := range s.data.Genres {
		genres = append(genres, genre)
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].Name < genres[j].Name })
	return genres, nil
}

func (s *Storage) GetGenre(ctx context.Context, slug string) (models.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	genre, ok := s.data.Genres[slug]
	if !ok {
		return models.Genre{}, fmt.Errorf("genre %q: %w", slug, ErrNotFound)
	}
	return genre, nil
}

// DeleteGenre removes the tag and detaches it from every title carrying it.
func (s *Storage) DeleteGenre(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Genres[slug]; !ok {
		return fmt.Errorf("genre %q: %w", slug, ErrNotFound)
	}

	clone := cloneDataset(s.data)
	delete(clone.Genres, slug)
	for id, title := range clone.Titles {
		kept := title.GenreSlugs[:0:0]
		for _, genreSlug := range title.GenreSlugs {
			if genreSlug != slug {
				kept = append(kept, genreSlug)
			}
		}
		if len(kept) != len(title.GenreSlugs) {
			title.GenreSlugs = kept
			clone.Titles[id] = title
		}
	}

	if err := s.persistDataset(clone); err != nil {
		return err
	}
	s.data = clone
	return nil
}

func normalizeGenreSlugs(input []string) []string {
	slugs := make([]string, 0, len(input))
	seen := make(map[string]struct{})
	for _, slug := range input {
		trimmed := strings.TrimSpace(slug)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		slugs = append(slugs, trimmed)
	}
	return slugs
}

func (s *Storage) resolveTitleRefsLocked(categorySlug *string, genreSlugs []string) (*string, []string, error) {
	if categorySlug != nil {
		slug := strings.TrimSpace(*categorySlug)
		if slug == "" {
			categorySlug = nil
		} else {
			if _, ok := s.data.Categories[slug]; !ok {
				return nil, nil, fmt.Errorf("category %q: %w", slug, ErrNotFound)
			}
			categorySlug = &slug
		}
	}
	slugs := normalizeGenreSlugs(genreSlugs)
	if len(slugs) == 0 {
		return nil, nil, fmt.Errorf("at least one genre is required: %w", ErrValidation)
	}
	for _, slug := range slugs {
		if _, ok := s.data.Genres[slug]; !ok {
			return nil, nil, fmt.Errorf("genre %q: %w", slug, ErrNotFound)
		}
	}
	return categorySlug, slugs, nil
}

func (s *Storage) CreateTitle(ctx context.Context, params TitleParams) (models.Title, error) {
	name := strings.TrimSpace(params.Name)
	if err := validateDisplayName(name); err != nil {
		return models.Title{}, err
	}
	if err := validateYear(params.Year); err != nil {
		return models.Title{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	categorySlug, genreSlugs, err := s.resolveTitleRefsLocked(params.CategorySlug, params.GenreSlugs)
	if err != nil {
		return models.Title{}, err
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
	s.data.Titles[id] = title
	if err := s.persist(); err != nil {
		delete(s.data.Titles, id)
		return models.Title{}, err
	}
	return title, nil
}

func (s *Storage) GetTitle(ctx context.Context, id string) (models.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	title, ok := s.data.Titles[id]
	if !ok {
		return models.Title{}, fmt.Errorf("title %s: %w", id, ErrNotFound)
	}
	return title, nil
}

func titleMatches(title models.Title, filter TitleFilter) bool {
	if filter.CategorySlug != "" {
		if title.CategorySlug == nil || *title.CategorySlug != filter.CategorySlug {
			return false
		}
	}
	if filter.GenreSlug != "" {
		found := false
		for _, slug := range title.GenreSlugs {
			if slug == filter.GenreSlug {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Year != 0 && title.Year != filter.Year {
		return false
	}
	if filter.Name != "" && !strings.Contains(strings.ToLower(title.Name), strings.ToLower(filter.Name)) {
		return false
	}
	return true
}

// ListTitles returns titles matching the filter, ordered by name.
func (s *Storage) ListTitles(ctx context.Context, filter TitleFilter) ([]models.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	titles := make([]models.Title, 0, len(s.data.Titles))
	for _, title := range s.data.Titles {
		if titleMatches(title, filter) {
			titles = append(titles, title)
		}
	}
	sort.Slice(titles, func(i, j int) bool {
		if titles[i].Name != titles[j].Name {
			return titles[i].Name < titles[j].Name
		}
		return titles[i].ID < titles[j].ID
	})
	return titles, nil
}

func (s *Storage) UpdateTitle(ctx context.Context, id string, update TitleUpdate) (models.Title, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title, ok := s.data.Titles[id]
	if !ok {
		return models.Title{}, fmt.Errorf("title %s: %w", id, ErrNotFound)
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
		slug := strings.TrimSpace(*update.CategorySlug)
		if slug == "" {
			updated.CategorySlug = nil
		} else {
			if _, exists := s.data.Categories[slug]; !exists {
				return models.Title{}, fmt.Errorf("category %q: %w", slug, ErrNotFound)
			}
			updated.CategorySlug = &slug
		}
	}
	if update.GenreSlugs != nil {
		slugs := normalizeGenreSlugs(update.GenreSlugs)
		if len(slugs) == 0 {
			return models.Title{}, fmt.Errorf("at least one genre is required: %w", ErrValidation)
		}
		for _, slug := range slugs {
			if _, exists := s.data.Genres[slug]; !exists {
				return models.Title{}, fmt.Errorf("genre %q: %w", slug, ErrNotFound)
			}
		}
		updated.GenreSlugs = slugs
	}

	s.data.Titles[id] = updated
	if err := s.persist(); err != nil {
		s.data.Titles[id] = title
		return models.Title{}, err
	}
	return updated, nil
}

// DeleteTitle removes the title together with its reviews and their comments.
func (s *Storage) DeleteTitle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Titles[id]; !ok {
		return fmt.Errorf("title %s: %w", id, ErrNotFound)
	}

	clone := cloneDataset(s.data)
	delete(clone.Titles, id)
	for reviewID, review := range clone.Reviews {
		if review.TitleID != id {
			continue
		}
		delete(clone.Reviews, reviewID)
		for commentID, comment := range clone.Comments {
			if comment.ReviewID == reviewID {
				delete(clone.Comments, commentID)
			}
		}
	}

	if err := s.persistDataset(clone); err != nil {
		return err
	}
	s.data = clone
	return nil
}

// TitleRating computes the mean review score on demand; the bool is false
// when the title has no reviews.
func (s *Storage) TitleRating(ctx context.Context, id string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Titles[id]; !ok {
		return 0, false, fmt.Errorf("title %s: %w", id, ErrNotFound)
	}
	sum, count := 0, 0
	for _, review := range s.data.Reviews {
		if review.TitleID == id {
			sum += review.Score
			count++
		}
	}
	if count == 0 {
		return 0, false, nil
	}
	return float64(sum) / float64(count), true, nil
}
