package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"reviewdeck/internal/models"
)

// CreateReview records a scored write-up. Each author may review a title at
// most once; the duplicate check and the insert share the write lock.
func (s *Storage) CreateReview(ctx context.Context, params ReviewParams) (models.Review, error) {
	if err := validateReviewText(params.Text); err != nil {
		return models.Review{}, err
	}
	if err := validateScore(params.Score); err != nil {
		return models.Review{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Titles[params.TitleID]; !ok {
		return models.Review{}, fmt.Errorf("title %s: %w", params.TitleID, ErrNotFound)
	}
	if _, ok := s.data.Users[params.AuthorID]; !ok {
		return models.Review{}, fmt.Errorf("user %s: %w", params.AuthorID, ErrNotFound)
	}
	for _, review := range s.data.Reviews {
		if review.TitleID == params.TitleID && review.AuthorID == params.AuthorID {
			return models.Review{}, fmt.Errorf("review of title %s by user %s %w", params.TitleID, params.AuthorID, ErrConflict)
		}
	}

	id, err := generateID()
	if err != nil {
		return models.Review{}, err
	}
	review := models.Review{
		ID:        id,
		TitleID:   params.TitleID,
		AuthorID:  params.AuthorID,
		Text:      params.Text,
		Score:     params.Score,
		CreatedAt: time.Now().UTC(),
	}
	s.data.Reviews[id] = review
	if err := s.persist(); err != nil {
		delete(s.data.Reviews, id)
		return models.Review{}, err
	}
	return review, nil
}

// GetReview fetches a review scoped to its title so mismatched nesting in
// request paths surfaces as not-found.
func (s *Storage) GetReview(ctx context.Context, titleID, reviewID string) (models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	review, ok := s.data.Reviews[reviewID]
	if !ok || review.TitleID != titleID {
		return models.Review{}, fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}
	return review, nil
}

// ListReviews returns a title's reviews ordered oldest first.
func (s *Storage) ListReviews(ctx context.Context, titleID string) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Titles[titleID]; !ok {
		return nil, fmt.Errorf("title %s: %w", titleID, ErrNotFound)
	}
	reviews := make([]models.Review, 0)
	for _, review := range s.data.Reviews {
		if review.TitleID == titleID {
			reviews = append(reviews, review)
		}
	}
	sort.Slice(reviews, func(i, j int) bool {
		if !reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].CreatedAt.Before(reviews[j].CreatedAt)
		}
		return reviews[i].ID < reviews[j].ID
	})
	return reviews, nil
}

func (s *Storage) UpdateReview(ctx context.Context, reviewID string, update ReviewUpdate) (models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	review, ok := s.data.Reviews[reviewID]
	if !ok {
		return models.Review{}, fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}

	updated := review
	if update.Text != nil {
		if err := validateReviewText(*update.Text); err != nil {
			return models.Review{}, err
		}
		updated.Text = *update.Text
	}
	if update.Score != nil {
		if err := validateScore(*update.Score); err != nil {
			return models.Review{}, err
		}
		updated.Score = *update.Score
	}

	s.data.Reviews[reviewID] = updated
	if err := s.persist(); err != nil {
		s.data.Reviews[reviewID] = review
		return models.Review{}, err
	}
	return updated, nil
}

// DeleteReview removes the review and its comments.
func (s *Storage) DeleteReview(ctx context.Context, reviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Reviews[reviewID]; !ok {
		return fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}

	clone := cloneDataset(s.data)
	delete(clone.Reviews, reviewID)
	for commentID, comment := range clone.Comments {
		if comment.ReviewID == reviewID {
			delete(clone.Comments, commentID)
		}
	}

	if err := s.persistDataset(clone); err != nil {
		return err
	}
	s.data = clone
	return nil
}

func (s *Storage) CreateComment(ctx context.Context, params CommentParams) (models.Comment, error) {
	if err := validateCommentText(params.Text); err != nil {
		return models.Comment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Reviews[params.ReviewID]; !ok {
		return models.Comment{}, fmt.Errorf("review %s: %w", params.ReviewID, ErrNotFound)
	}
	if _, ok := s.data.Users[params.AuthorID]; !ok {
		return models.Comment{}, fmt.Errorf("user %s: %w", params.AuthorID, ErrNotFound)
	}

	id, err := generateID()
	if err != nil {
		return models.Comment{}, err
	}
	comment := models.Comment{
		ID:        id,
		ReviewID:  params.ReviewID,
		AuthorID:  params.AuthorID,
		Text:      params.Text,
		CreatedAt: time.Now().UTC(),
	}
	s.data.Comments[id] = comment
	if err := s.persist(); err != nil {
		delete(s.data.Comments, id)
		return models.Comment{}, err
	}
	return comment, nil
}

func (s *Storage) GetComment(ctx context.Context, reviewID, commentID string) (models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.data.Comments[commentID]
	if !ok || comment.ReviewID != reviewID {
		return models.Comment{}, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	return comment, nil
}

// ListComments returns a review's comments ordered oldest first.
func (s *Storage) ListComments(ctx context.Context, reviewID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Reviews[reviewID]; !ok {
		return nil, fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}
	comments := make([]models.Comment, 0)
	for _, comment := range s.data.Comments {
		if comment.ReviewID == reviewID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
	return comments, nil
}

func (s *Storage) UpdateComment(ctx context.Context, commentID string, update CommentUpdate) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.data.Comments[commentID]
	if !ok {
		return models.Comment{}, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}

	updated := comment
	if update.Text != nil {
		if err := validateCommentText(*update.Text); err != nil {
			return models.Comment{}, err
		}
		updated.Text = *update.Text
	}

	s.data.Comments[commentID] = updated
	if err := s.persist(); err != nil {
		s.data.Comments[commentID] = comment
		return models.Comment{}, err
	}
	return updated, nil
}

func (s *Storage) DeleteComment(ctx context.Context, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.data.Comments[commentID]
	if !ok {
		return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}

	delete(s.data.Comments, commentID)
	if err := s.persist(); err != nil {
		s.data.Comments[commentID] = comment
		return err
	}
	return nil
}
