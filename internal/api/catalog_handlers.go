package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"reviewdeck/internal/storage"
)

type catalogEntryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Categories handles the category collection: public listing, admin create.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		categories, err := h.Store.ListCategories(r.Context())
		if err != nil {
			writeStorageError(w, err)
			return
		}
		responses := make([]catalogEntry, 0, len(categories))
		for _, category := range categories {
			responses = append(responses, newCategoryResponse(category))
		}
		writeJSON(w, http.StatusOK, responses)
	case http.MethodPost:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		var req catalogEntryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := h.Store.CreateCategory(r.Context(), req.Name, req.Slug)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newCategoryResponse(category))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// CategoryBySlug handles admin deletion of a single category.
func (h *Handler) CategoryBySlug(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/categories/")
	if len(segments) != 1 {
		writeError(w, http.StatusNotFound, fmt.Errorf("category not found"))
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	if err := h.Store.DeleteCategory(r.Context(), segments[0]); err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// Genres handles the genre collection: public listing, admin create.
func (h *Handler) Genres(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		genres, err := h.Store.ListGenres(r.Context())
		if err != nil {
			writeStorageError(w, err)
			return
		}
		responses := make([]catalogEntry, 0, len(genres))
		for _, genre := range genres {
			responses = append(responses, newGenreResponse(genre))
		}
		writeJSON(w, http.StatusOK, responses)
	case http.MethodPost:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		var req catalogEntryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		genre, err := h.Store.CreateGenre(r.Context(), req.Name, req.Slug)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newGenreResponse(genre))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// GenreBySlug handles admin deletion of a single genre.
func (h *Handler) GenreBySlug(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/genres/")
	if len(segments) != 1 {
		writeError(w, http.StatusNotFound, fmt.Errorf("genre not found"))
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	if err := h.Store.DeleteGenre(r.Context(), segments[0]); err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type titleRequest struct {
	Name        string   `json:"name"`
	Year        int      `json:"year"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Genres      []string `json:"genre"`
}

type titleUpdateRequest struct {
	Name        *string  `json:"name"`
	Year        *int     `json:"year"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Genres      []string `json:"genre"`
}

// Titles handles the title collection: public filtered listing, admin create.
func (h *Handler) Titles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := storage.TitleFilter{
			CategorySlug: strings.TrimSpace(r.URL.Query().Get("category")),
			GenreSlug:    strings.TrimSpace(r.URL.Query().Get("genre")),
			Name:         strings.TrimSpace(r.URL.Query().Get("name")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
			year, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid year filter %q", raw))
				return
			}
			filter.Year = year
		}
		titles, err := h.Store.ListTitles(r.Context(), filter)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		responses := make([]titleResponse, 0, len(titles))
		for _, title := range titles {
			resp, err := h.newTitleResponse(r.Context(), title)
			if err != nil {
				writeStorageError(w, err)
				return
			}
			responses = append(responses, resp)
		}
		writeJSON(w, http.StatusOK, responses)
	case http.MethodPost:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		var req titleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		params := storage.TitleParams{
			Name:        req.Name,
			Year:        req.Year,
			Description: req.Description,
			GenreSlugs:  req.Genres,
		}
		if category := strings.TrimSpace(req.Category); category != "" {
			params.CategorySlug = &category
		}
		title, err := h.Store.CreateTitle(r.Context(), params)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		resp, err := h.newTitleResponse(r.Context(), title)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// TitleSubtree routes everything under /api/titles/{id}, including the nested
// review and comment resources.
func (h *Handler) TitleSubtree(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/titles/")
	switch {
	case len(segments) == 1:
		h.titleByID(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "reviews":
		h.reviews(w, r, segments[0])
	case len(segments) == 3 && segments[1] == "reviews":
		h.reviewByID(w, r, segments[0], segments[2])
	case len(segments) == 4 && segments[1] == "reviews" && segments[3] == "comments":
		h.comments(w, r, segments[0], segments[2])
	case len(segments) == 5 && segments[1] == "reviews" && segments[3] == "comments":
		h.commentByID(w, r, segments[0], segments[2], segments[4])
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (h *Handler) titleByID(w http.ResponseWriter, r *http.Request, titleID string) {
	switch r.Method {
	case http.MethodGet:
		title, err := h.Store.GetTitle(r.Context(), titleID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		resp, err := h.newTitleResponse(r.Context(), title)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPatch:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		var req titleUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		title, err := h.Store.UpdateTitle(r.Context(), titleID, storage.TitleUpdate{
			Name:         req.Name,
			Year:         req.Year,
			Description:  req.Description,
			CategorySlug: req.Category,
			GenreSlugs:   req.Genres,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		resp, err := h.newTitleResponse(r.Context(), title)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodDelete:
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
		if err := h.Store.DeleteTitle(r.Context(), titleID); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusNoContent, nil)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}
