package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"reviewdeck/internal/models"
)

// seedTitle creates a category, two genres, and a title through the handler
// surface, returning the title response.
func seedTitle(t *testing.T, handler *Handler, admin models.User) titleResponse {
	t.Helper()
	for _, body := range []map[string]string{
		{"name": "Movies", "slug": "movies"},
	} {
		rr := httptest.NewRecorder()
		handler.Categories(rr, requestAs(t, admin, http.MethodPost, "/api/categories", body))
		if rr.Code != http.StatusCreated {
			t.Fatalf("create category: %d: %s", rr.Code, rr.Body.String())
		}
	}
	for _, body := range []map[string]string{
		{"name": "Drama", "slug": "drama"},
		{"name": "Science Fiction"},
	} {
		rr := httptest.NewRecorder()
		handler.Genres(rr, requestAs(t, admin, http.MethodPost, "/api/genres", body))
		if rr.Code != http.StatusCreated {
			t.Fatalf("create genre: %d: %s", rr.Code, rr.Body.String())
		}
	}

	rr := httptest.NewRecorder()
	handler.Titles(rr, requestAs(t, admin, http.MethodPost, "/api/titles", map[string]interface{}{
		"name":        "Solaris",
		"year":        1972,
		"description": "a station above an ocean planet",
		"category":    "movies",
		"genre":       []string{"drama", "science-fiction"},
	}))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create title: %d: %s", rr.Code, rr.Body.String())
	}
	var title titleResponse
	decodeBody(t, rr, &title)
	return title
}

func TestCategoriesPublicListAdminCreate(t *testing.T) {
	handler, _ := newTestHandler(t)
	admin := createTestUser(t, handler, "root", models.RoleAdmin)
	regular := createTestUser(t, handler, "alice", models.RoleUser)

	rr := httptest.NewRecorder()
	handler.Categories(rr, requestAs(t, regular, http.MethodPost, "/api/categories", map[string]string{"name": "Books"}))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin create, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.Categories(rr, requestAs(t, admin, http.MethodPost, "/api/categories", map[string]string{"name": "Books"}))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created catalogEntry
	decodeBody(t, rr, &created)
	if created.Slug != "books" {
		t.Fatalf("expected derived slug books, got %q", created.Slug)
	}

	// Listing is public, no user on the context.
	rr = httptest.NewRecorder()
	handler.Categories(rr, jsonRequest(t, http.MethodGet, "/api/categories", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var listed []catalogEntry
	decodeBody(t, rr, &listed)
	if len(listed) != 1 || listed[0].Slug != "books" {
		t.Fatalf("unexpected listing %+v", listed)
	}
}

func TestCategoryDelete(t *testing.T) {
	handler, _ := newTestHandler(t)
	admin := createTestUser(t, handler, "root", models.RoleAdmin)
	seedTitle(t, handler, admin)

	rr := httptest.NewRecorder()
	handler.CategoryBySlug(rr, requestAs(t, admin, http.MethodDelete, "/api/categories/movies", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	handler.CategoryBySlug(rr, requestAs(t, admin, http.MethodDelete, "/api/categories/movies", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %d", rr.Code)
	}
}

func TestTitleCreateAndGet(t *testing.T) {
	handler, _ := newTestHandler(t)
	admin := createTestUser(t, handler, "root", models.RoleAdmin)
	title := seedTitle(t, handler, admin)

	if title.Rating != nil {
		t.Fatalf("expected null rating before reviews, got %v", *title.Rating)
	}
	if title.Category == nil || title.Category.Slug != "movies" {
		t.Fatalf("expected embedded category, got %+v", title.Category)
	}
	if len(title.Genres) != 2 {
		t.Fatalf("expected 2 genres, got %+v", title.Genres)
	}

	rr := httptest.NewRecorder()
	handler.TitleSubtree(rr, jsonRequest(t, http.MethodGet, "/api/titles/"+title.ID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var fetched titleResponse
	decodeBody(t, rr, &fetched)
	if fetched.Name != "Solaris" || fetched.Year != 1972 {
		t.Fatalf("unexpected title %+v", fetched)
	}
}

func TestTitlesListFilters(t *testing.T) {
	handler, _ := newTestHandler(t)
	admin := createTestUser(t, handler, "root", models.RoleAdmin)
	seedTitle(t, handler, admin)

	rr := httptest.NewRecorder()
	handler.Titles(rr, requestAs(t, admin, http.MethodPost, "/api/titles", map[string]interface{}{
		"name":  "Roadside Picnic",
		"year":  1972,
		"genre": []string{"science-fiction"},
	}))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create second title: %d: %s", rr.Code, rr.Body.String())
	}

	cases := []struct {
		name  string
		query string
		want  int
	}{
		{name: "all", query: "", want: 2},
		{name: "by category", query: "?category=movies", want: 1},
		{name: "by genre", query: "?genre=science-fiction", want: 2},
		{name: "by name", query: "?name=solaris", want: 1},
		{name: "by year", query: "?year=1972", want: 2},
		{name: "no match", query: "?category=books", want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.Titles(rr, jsonRequest(t, http.MethodGet, "/api/titles"+tc.query, nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
			}
			var titles []titleResponse
			decodeBody(t, rr, &titles)
			if len(titles) != tc.want {
				t.Fatalf("expected %d titles, got %d", tc.want, len(titles))
			}
		})
	}

	rr = httptest.NewRecorder()
	handler.Titles(rr, jsonRequest(t, http.MethodGet, "/api/titles?year=abc", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad year filter, got %d", rr.Code)
	}
}

func TestTitleUpdateAndDelete(t *testing.T) {
	handler, _ := newTestHandler(t)
	admin := createTestUser(t, handler, "root", models.RoleAdmin)
	regular := createTestUser(t, handler, "alice", models.RoleUser)
	title := seedTitle(t, handler, admin)

	rr := httptest.NewRecorder()
	handler.TitleSubtree(rr, requestAs(t, regular, http.MethodPatch, "/api/titles/"+title.ID, map[string]interface{}{
		"description": "vandalized",
	}))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin patch, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.TitleSubtree(rr, requestAs(t, admin, http.MethodPatch, "/api/titles/"+title.ID, map[string]interface{}{
		"description": "a haunting adaptation",
		"category":    "",
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated titleResponse
	decodeBody(t, rr, &updated)
	if updated.Description != "a haunting adaptation" {
		t.Fatalf("unexpected description %q", updated.Description)
	}
	if updated.Category != nil {
		t.Fatalf("expected category to be cleared, got %+v", updated.Category)
	}

	rr = httptest.NewRecorder()
	handler.TitleSubtree(rr, requestAs(t, admin, http.MethodDelete, "/api/titles/"+title.ID, nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.TitleSubtree(rr, jsonRequest(t, http.MethodGet, "/api/titles/"+title.ID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}
