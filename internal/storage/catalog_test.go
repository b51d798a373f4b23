package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedCatalog(t *testing.T, store *Storage) {
	t.Helper()
	ctx := context.Background()
	if _, err := store.CreateCategory(ctx, "Films", "films"); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	for _, genre := range []string{"Drama", "Comedy"} {
		if _, err := store.CreateGenre(ctx, genre, ""); err != nil {
			t.Fatalf("CreateGenre %s: %v", genre, err)
		}
	}
}

func TestCreateCategoryDerivesSlug(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	category, err := store.CreateCategory(ctx, "Science Fiction", "")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if category.Slug != "science-fiction" {
		t.Fatalf("expected derived slug science-fiction, got %q", category.Slug)
	}

	if _, err := store.CreateCategory(ctx, "Other Name", "science-fiction"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected slug conflict, got %v", err)
	}
	if _, err := store.CreateCategory(ctx, "Bad Slug", "no spaces"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected slug validation error, got %v", err)
	}
}

func TestCreateTitleRules(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedCatalog(t, store)

	films := "films"
	title, err := store.CreateTitle(ctx, TitleParams{
		Name:         "The Long Goodbye",
		Year:         1973,
		CategorySlug: &films,
		GenreSlugs:   []string{"drama", "comedy", "drama"},
	})
	if err != nil {
		t.Fatalf("CreateTitle: %v", err)
	}
	if len(title.GenreSlugs) != 2 {
		t.Fatalf("expected duplicate genres to collapse, got %v", title.GenreSlugs)
	}

	if _, err := store.CreateTitle(ctx, TitleParams{Name: "No Genres", Year: 2000}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected genre requirement, got %v", err)
	}
	future := time.Now().UTC().Year() + 1
	if _, err := store.CreateTitle(ctx, TitleParams{Name: "Unreleased", Year: future, GenreSlugs: []string{"drama"}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected future year rejection, got %v", err)
	}
	missing := "books"
	if _, err := store.CreateTitle(ctx, TitleParams{Name: "Wrong Shelf", Year: 2000, CategorySlug: &missing, GenreSlugs: []string{"drama"}}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected unknown category, got %v", err)
	}
}

func TestListTitlesFilters(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedCatalog(t, store)

	films := "films"
	mk := func(name string, year int, genres ...string) {
		t.Helper()
		if _, err := store.CreateTitle(ctx, TitleParams{Name: name, Year: year, CategorySlug: &films, GenreSlugs: genres}); err != nil {
			t.Fatalf("CreateTitle %s: %v", name, err)
		}
	}
	mk("Alpha", 1999, "drama")
	mk("Beta", 1999, "comedy")
	mk("Gamma", 2005, "drama", "comedy")

	byGenre, err := store.ListTitles(ctx, TitleFilter{GenreSlug: "drama"})
	if err != nil {
		t.Fatalf("ListTitles genre: %v", err)
	}
	if len(byGenre) != 2 {
		t.Fatalf("expected 2 drama titles, got %d", len(byGenre))
	}

	byYear, err := store.ListTitles(ctx, TitleFilter{Year: 1999})
	if err != nil {
		t.Fatalf("ListTitles year: %v", err)
	}
	if len(byYear) != 2 || byYear[0].Name != "Alpha" {
		t.Fatalf("expected [Alpha Beta] for 1999, got %v", byYear)
	}

	byName, err := store.ListTitles(ctx, TitleFilter{Name: "gam"})
	if err != nil {
		t.Fatalf("ListTitles name: %v", err)
	}
	if len(byName) != 1 || byName[0].Name != "Gamma" {
		t.Fatalf("expected Gamma for name filter, got %v", byName)
	}
}

func TestDeleteCategoryDetachesTitles(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedCatalog(t, store)

	films := "films"
	title, err := store.CreateTitle(ctx, TitleParams{Name: "Orphaned", Year: 2001, CategorySlug: &films, GenreSlugs: []string{"drama"}})
	if err != nil {
		t.Fatalf("CreateTitle: %v", err)
	}
	if err := store.DeleteCategory(ctx, "films"); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	got, err := store.GetTitle(ctx, title.ID)
	if err != nil {
		t.Fatalf("GetTitle after category delete: %v", err)
	}
	if got.CategorySlug != nil {
		t.Fatalf("expected category to be cleared, got %q", *got.CategorySlug)
	}
}

func TestDeleteGenreDetachesTitles(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedCatalog(t, store)

	title, err := store.CreateTitle(ctx, TitleParams{Name: "Mixed", Year: 2001, GenreSlugs: []string{"drama", "comedy"}})
	if err != nil {
		t.Fatalf("CreateTitle: %v", err)
	}
	if err := store.DeleteGenre(ctx, "comedy"); err != nil {
		t.Fatalf("DeleteGenre: %v", err)
	}

	got, err := store.GetTitle(ctx, title.ID)
	if err != nil {
		t.Fatalf("GetTitle after genre delete: %v", err)
	}
	if len(got.GenreSlugs) != 1 || got.GenreSlugs[0] != "drama" {
		t.Fatalf("expected only drama to remain, got %v", got.GenreSlugs)
	}
}

func TestDeleteTitleCascades(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	seedCatalog(t, store)

	author, err := store.CreateUser(ctx, CreateUserParams{Username: "author", Email: "author@example.com"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	title, err := store.CreateTitle(ctx, TitleParams{Name: "Doomed", Year: 2001, GenreSlugs: []string{"drama"}})
	if err != nil {
		t.Fatalf("CreateTitle: %v", err)
	}
	review, err := store.CreateReview(ctx, ReviewParams{TitleID: title.ID, AuthorID: author.ID, Text: "short-lived", Score: 5})
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	comment, err := store.CreateComment(ctx, CommentParams{ReviewID: review.ID, AuthorID: author.ID, Text: "same"})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	if err := store.DeleteTitle(ctx, title.ID); err != nil {
		t.Fatalf("DeleteTitle: %v", err)
	}
	if _, err := store.GetReview(ctx, title.ID, review.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cascaded review delete, got %v", err)
	}
	if _, err := store.GetComment(ctx, review.ID, comment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cascaded comment delete, got %v", err)
	}
}
