package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/services"
)

// ReviewHandler exposes the review recorder and the public rating surface.
type ReviewHandler struct {
	reviews *services.ReviewService
}

func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type createReviewRequest struct {
	RevieweeID    string                 `json:"revieweeId"`
	TransactionID string                 `json:"transactionId"`
	Rating        int                    `json:"rating"`
	Comment       string                 `json:"comment"`
	Detailed      *domain.DetailedRating `json:"detailedRatings"`
	Tags          []domain.ReviewTag     `json:"tags"`
}

func (h *ReviewHandler) create(w http.ResponseWriter, r *http.Request) {
	var in createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	rev, err := h.reviews.CreateReview(r.Context(), services.CreateReviewInput{
		ReviewerID:    userID(r),
		RevieweeID:    in.RevieweeID,
		TransactionID: in.TransactionID,
		Rating:        in.Rating,
		Comment:       in.Comment,
		Detailed:      in.Detailed,
		Tags:          in.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rev)
}

type respondRequest struct {
	Text string `json:"text"`
}

func (h *ReviewHandler) respond(w http.ResponseWriter, r *http.Request) {
	var in respondRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	rev, err := h.reviews.RespondToReview(r.Context(), chi.URLParam(r, "reviewID"), userID(r), in.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (h *ReviewHandler) listForUser(w http.ResponseWriter, r *http.Request) {
	role := domain.ReviewRole(r.URL.Query().Get("role"))
	if role != "" && role != domain.RoleOwner && role != domain.RoleRenter {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "role must be owner or renter"})
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	reviews, total, err := h.reviews.ListUserReviews(r.Context(), chi.URLParam(r, "userID"), role, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reviews": reviews,
		"total":   total,
	})
}

func (h *ReviewHandler) userRating(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reviews.UserRating(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
