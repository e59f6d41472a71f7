package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trust-service/internal/adapters/memory"
	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

func TestComputeTrustScore(t *testing.T) {
	testCases := []struct {
		name         string
		verification domain.Verification
		rating       domain.Rating
		stats        domain.Stats
		want         int
	}{
		{
			name: "new user scores zero",
			want: 0,
		},
		{
			name:         "phone only",
			verification: domain.Verification{PhoneVerified: true},
			want:         10,
		},
		{
			name: "fully verified without history",
			verification: domain.Verification{
				PhoneVerified: true, LivenessVerified: true, IDVerified: true,
			},
			want: 40,
		},
		{
			name: "fully verified with strong history",
			verification: domain.Verification{
				PhoneVerified: true, LivenessVerified: true, IDVerified: true,
			},
			rating: domain.Rating{Average: 4.8, Count: 12},
			stats:  domain.Stats{CompletedTransactions: 20},
			// 40 + 4.8/5*30 + min(12*1.5,15) + min(20*0.5,15) = 93.8
			want: 94,
		},
		{
			name: "seasoned fully verified user",
			verification: domain.Verification{
				PhoneVerified: true, LivenessVerified: true, IDVerified: true,
			},
			rating: domain.Rating{Average: 4.5, Count: 30},
			stats:  domain.Stats{CompletedTransactions: 40},
			// 40 + 4.5/5*30 + 15 + 15
			want: 97,
		},
		{
			name: "volume contributions cap at 15 each",
			verification: domain.Verification{
				PhoneVerified: true, LivenessVerified: true, IDVerified: true,
			},
			rating: domain.Rating{Average: 5, Count: 500},
			stats:  domain.Stats{CompletedTransactions: 500},
			want:   100,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeTrustScore(tc.verification, tc.rating, tc.stats)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComputeRating(t *testing.T) {
	reviews := []*domain.Review{
		{Rating: 5, Role: domain.RoleOwner},
		{Rating: 4, Role: domain.RoleOwner},
		{Rating: 3, Role: domain.RoleRenter},
	}

	rating := ComputeRating(reviews)
	assert.Equal(t, 3, rating.Count)
	assert.Equal(t, 4.0, rating.Average)
	assert.Equal(t, domain.RoleRating{Average: 4.5, Count: 2}, rating.AsOwner)
	assert.Equal(t, domain.RoleRating{Average: 3.0, Count: 1}, rating.AsRenter)
}

func TestTrustService_Recompute(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	reviews := memory.NewReviewStore()
	svc := NewTrustService(users, reviews, &nopLogger)

	user := newTestUser("u1")
	user.Verification.PhoneVerified = true
	require.NoError(t, users.Create(ctx, user))

	for i, rating := range []int{5, 5, 5, 4, 5} {
		require.NoError(t, reviews.Create(ctx, &domain.Review{
			ID: "rev_" + string(rune('a'+i)), ReviewerID: "r" + string(rune('a'+i)),
			RevieweeID: "u1", TransactionID: "tx" + string(rune('a'+i)),
			Role: domain.RoleOwner, Rating: rating, IsPublic: true,
			CreatedAt: time.Now(),
		}))
	}

	require.NoError(t, svc.Recompute(ctx, "u1"))

	got, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating.Count)
	assert.Equal(t, 4.8, got.Rating.Average)
	// 10 + 4.8/5*30 + min(5*1.5,15) = 46.3
	assert.Equal(t, 46, got.TrustScore)
	assert.True(t, got.HasBadge(domain.BadgeTrustedOwner), "avg 4.8 over 5 reviews as owner")
	assert.False(t, got.HasBadge(domain.BadgeTrustedRenter))
	assert.False(t, got.HasBadge(domain.BadgeSuperhero))
}

func TestTrustService_SuperheroBadge(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	svc := NewTrustService(users, memory.NewReviewStore(), &nopLogger)

	user := newTestUser("u1")
	user.Stats.CompletedTransactions = 50
	require.NoError(t, users.Create(ctx, user))

	require.NoError(t, svc.Recompute(ctx, "u1"))

	got, _ := users.GetByID(ctx, "u1")
	assert.True(t, got.HasBadge(domain.BadgeSuperhero))

	// Idempotent: a second recompute does not duplicate the badge.
	require.NoError(t, svc.Recompute(ctx, "u1"))
	got, _ = users.GetByID(ctx, "u1")
	count := 0
	for _, b := range got.Badges {
		if b.Type == domain.BadgeSuperhero {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestTrustService_SubscribedToBusTopics(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	svc := NewTrustService(users, memory.NewReviewStore(), &nopLogger)
	bus := newSyncBus()
	svc.Subscribe(bus)

	user := newTestUser("u1")
	user.Verification.PhoneVerified = true
	require.NoError(t, users.Create(ctx, user))

	require.NoError(t, bus.Publish(ctx, ports.TopicVerificationPassed, ports.UserEvent{UserID: "u1"}))

	got, _ := users.GetByID(ctx, "u1")
	assert.Equal(t, 10, got.TrustScore)
}

func TestComputeReviewStatistics(t *testing.T) {
	reviews := []*domain.Review{
		{Rating: 5, Tags: []domain.ReviewTag{domain.TagFriendly, domain.TagPunctual},
			Detailed: &domain.DetailedRating{Communication: 5, Punctuality: 4}},
		{Rating: 5, Tags: []domain.ReviewTag{domain.TagFriendly}},
		{Rating: 3, Detailed: &domain.DetailedRating{Communication: 3}},
	}

	stats := ComputeReviewStatistics(reviews)
	assert.Equal(t, 2, stats.Distribution[5])
	assert.Equal(t, 1, stats.Distribution[3])
	assert.Equal(t, 0, stats.Distribution[1])

	require.NotEmpty(t, stats.TopTags)
	assert.Equal(t, domain.TagCount{Tag: domain.TagFriendly, Count: 2}, stats.TopTags[0])

	assert.Equal(t, 4.0, stats.AvgDetailed["communication"])
	assert.Equal(t, 4.0, stats.AvgDetailed["punctuality"])
	_, hasOverall := stats.AvgDetailed["overall"]
	assert.False(t, hasOverall, "unset sub-scores are excluded")
}
