package api

import (
	"context"
	"errors"
	"math"
	"time"

	"reviewdeck/internal/models"
	"reviewdeck/internal/storage"
)

type userResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Bio:       user.Bio,
		Role:      user.Role,
	}
}

// catalogEntry serializes both categories and genres.
type catalogEntry struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func newCategoryResponse(category models.Category) catalogEntry {
	return catalogEntry{Name: category.Name, Slug: category.Slug}
}

func newGenreResponse(genre models.Genre) catalogEntry {
	return catalogEntry{Name: genre.Name, Slug: genre.Slug}
}

type titleResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Year        int            `json:"year"`
	Rating      *float64       `json:"rating"`
	Description string         `json:"description"`
	Genres      []catalogEntry `json:"genre"`
	Category    *catalogEntry  `json:"category"`
}

// newTitleResponse resolves the title's category and genre references and
// computes the mean review score. Rating is null until the first review
// lands.
func (h *Handler) newTitleResponse(ctx context.Context, title models.Title) (titleResponse, error) {
	resp := titleResponse{
		ID:          title.ID,
		Name:        title.Name,
		Year:        title.Year,
		Description: title.Description,
		Genres:      make([]catalogEntry, 0, len(title.GenreSlugs)),
	}

	mean, reviewed, err := h.Store.TitleRating(ctx, title.ID)
	if err != nil {
		return titleResponse{}, err
	}
	if reviewed {
		rounded := math.Round(mean*10) / 10
		resp.Rating = &rounded
	}

	if title.CategorySlug != nil {
		category, err := h.Store.GetCategory(ctx, *title.CategorySlug)
		switch {
		case err == nil:
			entry := newCategoryResponse(category)
			resp.Category = &entry
		case errors.Is(err, storage.ErrNotFound):
			// Dangling reference, serialize as uncategorized.
		default:
			return titleResponse{}, err
		}
	}

	for _, slug := range title.GenreSlugs {
		genre, err := h.Store.GetGenre(ctx, slug)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return titleResponse{}, err
		}
		resp.Genres = append(resp.Genres, newGenreResponse(genre))
	}
	return resp, nil
}

type reviewResponse struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

func (h *Handler) newReviewResponse(ctx context.Context, review models.Review) (reviewResponse, error) {
	author, err := h.authorUsername(ctx, review.AuthorID)
	if err != nil {
		return reviewResponse{}, err
	}
	return reviewResponse{
		ID:      review.ID,
		Text:    review.Text,
		Author:  author,
		Score:   review.Score,
		PubDate: review.CreatedAt,
	}, nil
}

type commentResponse struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	PubDate time.Time `json:"pub_date"`
}

func (h *Handler) newCommentResponse(ctx context.Context, comment models.Comment) (commentResponse, error) {
	author, err := h.authorUsername(ctx, comment.AuthorID)
	if err != nil {
		return commentResponse{}, err
	}
	return commentResponse{
		ID:      comment.ID,
		Text:    comment.Text,
		Author:  author,
		PubDate: comment.CreatedAt,
	}, nil
}

func (h *Handler) authorUsername(ctx context.Context, authorID string) (string, error) {
	user, err := h.Store.GetUser(ctx, authorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return user.Username, nil
}
