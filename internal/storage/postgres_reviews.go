package storage

import (
	"context"
	"fmt"
	"time"

	"reviewdeck/internal/models"
)

func (r *PostgresRepository) CreateReview(ctx context.Context, params ReviewParams) (models.Review, error) {
	if err := validateReviewText(params.Text); err != nil {
		return models.Review{}, err
	}
	if err := validateScore(params.Score); err != nil {
		return models.Review{}, err
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
	// Foreign keys catch unknown title/author, the (author_id, title_id)
	// unique constraint catches a second review by the same author.
	_, err = r.pool.Exec(ctx, `
		INSERT INTO reviews (id, title_id, author_id, text, score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, review.TitleID, review.AuthorID, review.Text, review.Score, review.CreatedAt,
	)
	if err != nil {
		return models.Review{}, translatePgError(err)
	}
	return review, nil
}

func scanReview(row rowScanner) (models.Review, error) {
	var review models.Review
	err := row.Scan(&review.ID, &review.TitleID, &review.AuthorID, &review.Text, &review.Score, &review.CreatedAt)
	return review, err
}

func (r *PostgresRepository) GetReview(ctx context.Context, titleID, reviewID string) (models.Review, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title_id, author_id, text, score, created_at
		FROM reviews WHERE id = $1 AND title_id = $2`, reviewID, titleID)
	review, err := scanReview(row)
	if noRows(err) {
		return models.Review{}, fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}
	if err != nil {
		return models.Review{}, fmt.Errorf("select review: %w", err)
	}
	return review, nil
}

func (r *PostgresRepository) ListReviews(ctx context.Context, titleID string) ([]models.Review, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM titles WHERE id = $1)`, titleID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check title: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("title %s: %w", titleID, ErrNotFound)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, title_id, author_id, text, score, created_at
		FROM reviews WHERE title_id = $1 ORDER BY created_at, id`, titleID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

func (r *PostgresRepository) UpdateReview(ctx context.Context, reviewID string, update ReviewUpdate) (models.Review, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title_id, author_id, text, score, created_at
		FROM reviews WHERE id = $1`, reviewID)
	review, err := scanReview(row)
	if noRows(err) {
		return models.Review{}, fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}
	if err != nil {
		return models.Review{}, fmt.Errorf("select review: %w", err)
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

	tag, err := r.pool.Exec(ctx, `UPDATE reviews SET text = $2, score = $3 WHERE id = $1`,
		reviewID, updated.Text, updated.Score)
	if err != nil {
		return models.Review{}, translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.Review{}, fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}
	return updated, nil
}

func (r *PostgresRepository) DeleteReview(ctx context.Context, reviewID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		return translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) CreateComment(ctx context.Context, params CommentParams) (models.Comment, error) {
	if err := validateCommentText(params.Text); err != nil {
		return models.Comment{}, err
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
	_, err = r.pool.Exec(ctx, `
		INSERT INTO comments (id, review_id, author_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, comment.ReviewID, comment.AuthorID, comment.Text, comment.CreatedAt,
	)
	if err != nil {
		return models.Comment{}, translatePgError(err)
	}
	return comment, nil
}

func scanComment(row rowScanner) (models.Comment, error) {
	var comment models.Comment
	err := row.Scan(&comment.ID, &comment.ReviewID, &comment.AuthorID, &comment.Text, &comment.CreatedAt)
	return comment, err
}

func (r *PostgresRepository) GetComment(ctx context.Context, reviewID, commentID string) (models.Comment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, review_id, author_id, text, created_at
		FROM comments WHERE id = $1 AND review_id = $2`, commentID, reviewID)
	comment, err := scanComment(row)
	if noRows(err) {
		return models.Comment{}, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	if err != nil {
		return models.Comment{}, fmt.Errorf("select comment: %w", err)
	}
	return comment, nil
}

func (r *PostgresRepository) ListComments(ctx context.Context, reviewID string) ([]models.Comment, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reviews WHERE id = $1)`, reviewID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check review: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("review %s: %w", reviewID, ErrNotFound)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, review_id, author_id, text, created_at
		FROM comments WHERE review_id = $1 ORDER BY created_at, id`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (r *PostgresRepository) UpdateComment(ctx context.Context, commentID string, update CommentUpdate) (models.Comment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, review_id, author_id, text, created_at
		FROM comments WHERE id = $1`, commentID)
	comment, err := scanComment(row)
	if noRows(err) {
		return models.Comment{}, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	if err != nil {
		return models.Comment{}, fmt.Errorf("select comment: %w", err)
	}

	updated := comment
	if update.Text != nil {
		if err := validateCommentText(*update.Text); err != nil {
			return models.Comment{}, err
		}
		updated.Text = *update.Text
	}

	tag, err := r.pool.Exec(ctx, `UPDATE comments SET text = $2 WHERE id = $1`, commentID, updated.Text)
	if err != nil {
		return models.Comment{}, translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.Comment{}, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	return updated, nil
}

func (r *PostgresRepository) DeleteComment(ctx context.Context, commentID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return translatePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	return nil
}
