package api

import (
	"net/http"

	"reviewdeck/internal/storage"
)

type reviewRequest struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

type reviewUpdateRequest struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

func (h *Handler) reviews(w http.ResponseWriter, r *http.Request, titleID string) {
	switch r.Method {
	case http.MethodGet:
		reviews, err := h.Store.ListReviews(r.Context(), titleID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		responses := make([]reviewResponse, 0, len(reviews))
		for _, review := range reviews {
			resp, err := h.newReviewResponse(r.Context(), review)
			if err != nil {
				writeStorageError(w, err)
				return
			}
			responses = append(responses, resp)
		}
		writeJSON(w, http.StatusOK, responses)
	case http.MethodPost:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req reviewRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		review, err := h.Store.CreateReview(r.Context(), storage.ReviewParams{
			TitleID:  titleID,
			AuthorID: user.ID,
			Text:     req.Text,
			Score:    req.Score,
		})
		if err != nil {
			h.recorder().ObserveReviewEvent("rejected")
			writeStorageError(w, err)
			return
		}
		h.recorder().ObserveReviewEvent("created")
		resp, err := h.newReviewResponse(r.Context(), review)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) reviewByID(w http.ResponseWriter, r *http.Request, titleID, reviewID string) {
	review, err := h.Store.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		resp, err := h.newReviewResponse(r.Context(), review)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPatch:
		if _, ok := h.ensureAuthoredAccess(w, r, review.AuthorID); !ok {
			return
		}
		var req reviewUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.Store.UpdateReview(r.Context(), review.ID, storage.ReviewUpdate{
			Text:  req.Text,
			Score: req.Score,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		h.recorder().ObserveReviewEvent("updated")
		resp, err := h.newReviewResponse(r.Context(), updated)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodDelete:
		if _, ok := h.ensureAuthoredAccess(w, r, review.AuthorID); !ok {
			return
		}
		if err := h.Store.DeleteReview(r.Context(), review.ID); err != nil {
			writeStorageError(w, err)
			return
		}
		h.recorder().ObserveReviewEvent("deleted")
		writeJSON(w, http.StatusNoContent, nil)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

type commentRequest struct {
	Text string `json:"text"`
}

type commentUpdateRequest struct {
	Text *string `json:"text"`
}

func (h *Handler) comments(w http.ResponseWriter, r *http.Request, titleID, reviewID string) {
	// The review must exist under the addressed title before its comments
	// are reachable.
	review, err := h.Store.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		comments, err := h.Store.ListComments(r.Context(), review.ID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		responses := make([]commentResponse, 0, len(comments))
		for _, comment := range comments {
			resp, err := h.newCommentResponse(r.Context(), comment)
			if err != nil {
				writeStorageError(w, err)
				return
			}
			responses = append(responses, resp)
		}
		writeJSON(w, http.StatusOK, responses)
	case http.MethodPost:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req commentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		comment, err := h.Store.CreateComment(r.Context(), storage.CommentParams{
			ReviewID: review.ID,
			AuthorID: user.ID,
			Text:     req.Text,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		h.recorder().ObserveCommentEvent("created")
		resp, err := h.newCommentResponse(r.Context(), comment)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) commentByID(w http.ResponseWriter, r *http.Request, titleID, reviewID, commentID string) {
	review, err := h.Store.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	comment, err := h.Store.GetComment(r.Context(), review.ID, commentID)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		resp, err := h.newCommentResponse(r.Context(), comment)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPatch:
		if _, ok := h.ensureAuthoredAccess(w, r, comment.AuthorID); !ok {
			return
		}
		var req commentUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.Store.UpdateComment(r.Context(), comment.ID, storage.CommentUpdate{Text: req.Text})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		h.recorder().ObserveCommentEvent("updated")
		resp, err := h.newCommentResponse(r.Context(), updated)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodDelete:
		if _, ok := h.ensureAuthoredAccess(w, r, comment.AuthorID); !ok {
			return
		}
		if err := h.Store.DeleteComment(r.Context(), comment.ID); err != nil {
			writeStorageError(w, err)
			return
		}
		h.recorder().ObserveCommentEvent("deleted")
		writeJSON(w, http.StatusNoContent, nil)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}
