package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

// Trust score weights. The four components sum to a 0-100 scale:
// verification up to 40, average rating up to 30, review volume up to 15,
// completed transactions up to 15.
const (
	trustPhonePoints       = 10.0
	trustLivenessPoints    = 15.0
	trustIDPoints          = 15.0
	trustRatingPoints      = 30.0
	trustReviewCountCap    = 15.0
	trustReviewCountWeight = 1.5
	trustTxCap             = 15.0
	trustTxWeight          = 0.5
)

// Reputation badge thresholds.
const (
	trustedRoleMinAverage = 4.5
	trustedRoleMinCount   = 5
	superheroMinCompleted = 50
)

// TrustService recomputes a user's rating aggregate, trust score, and
// reputation badges. It runs whenever a verification passes or a review is
// recorded, driven by the event bus.
type TrustService struct {
	userRepo   ports.UserRepository
	reviewRepo ports.ReviewRepository
	log        zerolog.Logger
}

func NewTrustService(userRepo ports.UserRepository, reviewRepo ports.ReviewRepository, baseLogger *zerolog.Logger) *TrustService {
	return &TrustService{
		userRepo:   userRepo,
		reviewRepo: reviewRepo,
		log:        baseLogger.With().Str("component", "trust_service").Logger(),
	}
}

// Subscribe wires the recompute to the topics that change trust inputs.
func (s *TrustService) Subscribe(bus ports.EventBus) {
	handler := func(ctx context.Context, event ports.Event) error {
		ev, ok := event.Data.(ports.UserEvent)
		if !ok {
			return fmt.Errorf("unexpected payload on %s: %T", event.Topic, event.Data)
		}
		return s.Recompute(ctx, ev.UserID)
	}
	bus.Subscribe(ports.TopicVerificationPassed, handler)
	bus.Subscribe(ports.TopicReviewCreated, handler)
}

// Recompute refreshes the rating aggregate, trust score, and badges for one
// user in a single read-modify-write.
func (s *TrustService) Recompute(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	reviews, _, err := s.reviewRepo.ListPublicByReviewee(ctx, userID, "", 0, 0)
	if err != nil {
		return fmt.Errorf("list reviews: %w", err)
	}
	if len(reviews) > 0 {
		user.Rating = ComputeRating(reviews)
	}

	user.TrustScore = ComputeTrustScore(user.Verification, user.Rating, user.Stats)
	s.awardReputationBadges(user)

	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.log.Debug().Str("user_id", userID).Int("trust_score", user.TrustScore).Msg("Trust recomputed")
	return nil
}

func (s *TrustService) awardReputationBadges(user *domain.User) {
	now := user.UpdatedAt
	if now.IsZero() {
		now = user.CreatedAt
	}
	if user.Rating.AsOwner.Average >= trustedRoleMinAverage && user.Rating.AsOwner.Count >= trustedRoleMinCount {
		user.AwardBadge(domain.BadgeTrustedOwner, now)
	}
	if user.Rating.AsRenter.Average >= trustedRoleMinAverage && user.Rating.AsRenter.Count >= trustedRoleMinCount {
		user.AwardBadge(domain.BadgeTrustedRenter, now)
	}
	if user.Stats.CompletedTransactions >= superheroMinCompleted {
		user.AwardBadge(domain.BadgeSuperhero, now)
	}
}

// ComputeRating aggregates public reviews into the overall and per-role
// averages, rounded to two decimals.
func ComputeRating(reviews []*domain.Review) domain.Rating {
	var rating domain.Rating
	var sum, ownerSum, renterSum int
	for _, r := range reviews {
		sum += r.Rating
		rating.Count++
		switch r.Role {
		case domain.RoleOwner:
			ownerSum += r.Rating
			rating.AsOwner.Count++
		case domain.RoleRenter:
			renterSum += r.Rating
			rating.AsRenter.Count++
		}
	}
	if rating.Count > 0 {
		rating.Average = round2(float64(sum) / float64(rating.Count))
	}
	if rating.AsOwner.Count > 0 {
		rating.AsOwner.Average = round2(float64(ownerSum) / float64(rating.AsOwner.Count))
	}
	if rating.AsRenter.Count > 0 {
		rating.AsRenter.Average = round2(float64(renterSum) / float64(rating.AsRenter.Count))
	}
	return rating
}

// ComputeTrustScore folds verification state, rating, and transaction
// history into the 0-100 score.
func ComputeTrustScore(v domain.Verification, rating domain.Rating, stats domain.Stats) int {
	score := 0.0
	if v.PhoneVerified {
		score += trustPhonePoints
	}
	if v.LivenessVerified {
		score += trustLivenessPoints
	}
	if v.IDVerified {
		score += trustIDPoints
	}
	score += rating.Average / 5 * trustRatingPoints
	score += math.Min(float64(rating.Count)*trustReviewCountWeight, trustReviewCountCap)
	score += math.Min(float64(stats.CompletedTransactions)*trustTxWeight, trustTxCap)

	return int(math.Round(math.Max(0, math.Min(100, score))))
}

// ComputeReviewStatistics builds the distribution, top-5 tags, and averaged
// detailed sub-scores over a user's public reviews.
func ComputeReviewStatistics(reviews []*domain.Review) *domain.ReviewStatistics {
	stats := &domain.ReviewStatistics{
		Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		AvgDetailed:  map[string]float64{},
	}

	tagCounts := map[domain.ReviewTag]int{}
	detailSums := map[string]int{}
	detailCounts := map[string]int{}

	for _, r := range reviews {
		if r.Rating >= 1 && r.Rating <= 5 {
			stats.Distribution[r.Rating]++
		}
		for _, t := range r.Tags {
			tagCounts[t]++
		}
		if d := r.Detailed; d != nil {
			for field, val := range map[string]int{
				"communication": d.Communication,
				"punctuality":   d.Punctuality,
				"itemCondition": d.ItemCondition,
				"carefulness":   d.Carefulness,
				"overall":       d.Overall,
			} {
				if val > 0 {
					detailSums[field] += val
					detailCounts[field]++
				}
			}
		}
	}

	for tag, count := range tagCounts {
		stats.TopTags = append(stats.TopTags, domain.TagCount{Tag: tag, Count: count})
	}
	sort.Slice(stats.TopTags, func(i, j int) bool {
		if stats.TopTags[i].Count != stats.TopTags[j].Count {
			return stats.TopTags[i].Count > stats.TopTags[j].Count
		}
		return stats.TopTags[i].Tag < stats.TopTags[j].Tag
	})
	if len(stats.TopTags) > 5 {
		stats.TopTags = stats.TopTags[:5]
	}

	for field, sum := range detailSums {
		stats.AvgDetailed[field] = round2(float64(sum) / float64(detailCounts[field]))
	}

	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
