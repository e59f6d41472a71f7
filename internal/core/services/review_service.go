package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

// CreateReviewInput carries a new review request.
type CreateReviewInput struct {
	ReviewerID    string
	RevieweeID    string
	TransactionID string
	Rating        int
	Comment       string
	Detailed      *domain.DetailedRating
	Tags          []domain.ReviewTag
}

// RatingSummary is the public rating card for one user.
type RatingSummary struct {
	UserID       string                   `json:"userId"`
	Name         string                   `json:"name"`
	Rating       domain.Rating            `json:"rating"`
	TrustScore   int                      `json:"trustScore"`
	Badges       []domain.Badge           `json:"badges"`
	Verification domain.Verification      `json:"verification"`
	Stats        domain.Stats             `json:"stats"`
	ReviewStats  *domain.ReviewStatistics `json:"reviewStats"`
}

// ReviewService records reviews after completed rentals and serves the
// public rating surface.
type ReviewService struct {
	reviewRepo ports.ReviewRepository
	txRepo     ports.TransactionRepository
	userRepo   ports.UserRepository
	bus        ports.EventBus
	log        zerolog.Logger
}

func NewReviewService(
	reviewRepo ports.ReviewRepository,
	txRepo ports.TransactionRepository,
	userRepo ports.UserRepository,
	bus ports.EventBus,
	baseLogger *zerolog.Logger,
) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		txRepo:     txRepo,
		userRepo:   userRepo,
		bus:        bus,
		log:        baseLogger.With().Str("component", "review_service").Logger(),
	}
}

// CreateReview validates eligibility and records one review. Eligibility:
// the transaction is completed, the reviewer is a participant, the reviewee
// is the counterparty, and the reviewer has not reviewed this deal before.
func (s *ReviewService) CreateReview(ctx context.Context, in CreateReviewInput) (*domain.Review, error) {
	if in.ReviewerID == "" || in.RevieweeID == "" || in.TransactionID == "" || in.Rating == 0 {
		return nil, domain.ErrMissingFields
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, domain.ErrInvalidRating
	}
	for _, t := range in.Tags {
		if !domain.ValidTag(t) {
			return nil, domain.ErrInvalidTag
		}
	}

	tx, err := s.txRepo.GetByID(ctx, in.TransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("lookup transaction: %w", err)
	}
	if tx.Status != domain.TransactionCompleted {
		return nil, domain.ErrTransactionNotCompleted
	}

	reviewerRole, ok := tx.RoleOf(in.ReviewerID)
	if !ok {
		return nil, domain.ErrNotAParticipant
	}
	revieweeRole, ok := tx.RoleOf(in.RevieweeID)
	if !ok || in.RevieweeID == in.ReviewerID {
		return nil, domain.ErrNotAParticipant
	}

	existing, err := s.reviewRepo.FindByReviewerAndTransaction(ctx, in.ReviewerID, in.TransactionID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup existing review: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateReview
	}

	reviewer, err := s.userRepo.GetByID(ctx, in.ReviewerID)
	if err != nil {
		return nil, fmt.Errorf("load reviewer: %w", err)
	}
	reviewee, err := s.userRepo.GetByID(ctx, in.RevieweeID)
	if err != nil {
		return nil, fmt.Errorf("load reviewee: %w", err)
	}

	rev := &domain.Review{
		ID:            "rev_" + uuid.NewString(),
		ReviewerID:    reviewer.ID,
		ReviewerName:  reviewer.Name,
		RevieweeID:    reviewee.ID,
		RevieweeName:  reviewee.Name,
		TransactionID: tx.ID,
		ItemID:        tx.ItemID,
		ItemName:      tx.ItemName,
		Role:          revieweeRole,
		Rating:        in.Rating,
		Detailed:      in.Detailed,
		Comment:       in.Comment,
		Tags:          in.Tags,
		IsPublic:      true,
		CreatedAt:     time.Now(),
	}

	if err := s.reviewRepo.Create(ctx, rev); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrDuplicateReview
		}
		return nil, fmt.Errorf("persist review: %w", err)
	}

	switch reviewerRole {
	case domain.RoleOwner:
		tx.OwnerReviewed = true
	case domain.RoleRenter:
		tx.RenterReviewed = true
	}
	if err := s.txRepo.Update(ctx, tx); err != nil {
		s.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("Failed to flip reviewed flag")
	}

	if err := s.bus.Publish(ctx, ports.TopicReviewCreated, ports.UserEvent{UserID: rev.RevieweeID}); err != nil {
		s.log.Error().Err(err).Str("user_id", rev.RevieweeID).Msg("Failed to publish review event")
	}

	s.log.Info().Str("review_id", rev.ID).Str("reviewee_id", rev.RevieweeID).Int("rating", rev.Rating).Msg("Review recorded")
	return rev, nil
}

// RespondToReview records the reviewee's one-time reply.
func (s *ReviewService) RespondToReview(ctx context.Context, reviewID, userID, text string) (*domain.Review, error) {
	if text == "" {
		return nil, domain.ErrMissingFields
	}
	rev, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lookup review: %w", err)
	}
	if rev.RevieweeID != userID {
		return nil, domain.ErrNotReviewee
	}
	if rev.Response != nil {
		return nil, domain.ErrResponseExists
	}

	rev.Response = &domain.ReviewResponse{Text: text, RespondedAt: time.Now()}
	if err := s.reviewRepo.Update(ctx, rev); err != nil {
		return nil, fmt.Errorf("persist response: %w", err)
	}
	return rev, nil
}

// ListUserReviews pages through a user's public reviews, newest first,
// optionally filtered by the side the user played.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID string, role domain.ReviewRole, page, limit int) ([]*domain.Review, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.reviewRepo.ListPublicByReviewee(ctx, userID, role, (page-1)*limit, limit)
}

// UserRating assembles the public rating card: aggregate rating, trust
// score, badges, verification summary, and the review breakdown.
func (s *ReviewService) UserRating(ctx context.Context, userID string) (*RatingSummary, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	reviews, _, err := s.reviewRepo.ListPublicByReviewee(ctx, userID, "", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	return &RatingSummary{
		UserID:       user.ID,
		Name:         user.Name,
		Rating:       user.Rating,
		TrustScore:   user.TrustScore,
		Badges:       user.Badges,
		Verification: user.Verification,
		Stats:        user.Stats,
		ReviewStats:  ComputeReviewStatistics(reviews),
	}, nil
}
