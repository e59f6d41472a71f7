package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
)

func TestReviewRepository_OneReviewPerReviewerPerDeal(t *testing.T) {
	requireTestDB(t)
	nopLogger := zerolog.Nop()
	repo := NewReviewRepository(testDB, &nopLogger)
	ctx := context.Background()

	reviewerID := uuid.NewString()
	txID := uuid.NewString()
	rev := &domain.Review{
		ID:            "rev_" + uuid.NewString(),
		ReviewerID:    reviewerID,
		RevieweeID:    uuid.NewString(),
		TransactionID: txID,
		Role:          domain.RoleRenter,
		Rating:        5,
		IsPublic:      true,
		CreatedAt:     time.Now(),
	}
	if err := repo.Create(ctx, rev); err != nil {
		t.Fatalf("Failed to create review: %v", err)
	}
	defer cleanupRow(t, "reviews", rev.ID)

	dup := *rev
	dup.ID = "rev_" + uuid.NewString()
	err := repo.Create(ctx, &dup)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Expected ErrConflict for duplicate (reviewer, transaction), got: %v", err)
	}
}

func TestReviewRepository_ListPublicByReviewee(t *testing.T) {
	requireTestDB(t)
	nopLogger := zerolog.Nop()
	repo := NewReviewRepository(testDB, &nopLogger)
	ctx := context.Background()

	revieweeID := uuid.NewString()
	base := time.Now().Add(-time.Hour)
	roles := []domain.ReviewRole{domain.RoleOwner, domain.RoleOwner, domain.RoleRenter}
	for i, role := range roles {
		rev := &domain.Review{
			ID:            "rev_" + uuid.NewString(),
			ReviewerID:    uuid.NewString(),
			RevieweeID:    revieweeID,
			TransactionID: uuid.NewString(),
			Role:          role,
			Rating:        4,
			IsPublic:      i != 2, // the renter review is hidden
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, rev); err != nil {
			t.Fatalf("Failed to create review %d: %v", i, err)
		}
		defer cleanupRow(t, "reviews", rev.ID)
	}

	all, total, err := repo.ListPublicByReviewee(ctx, revieweeID, "", 0, 0)
	if err != nil {
		t.Fatalf("ListPublicByReviewee failed: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("Expected 2 public reviews, got total=%d len=%d", total, len(all))
	}
	if !all[0].CreatedAt.After(all[1].CreatedAt) {
		t.Error("Reviews are not sorted newest first")
	}

	page, total, err := repo.ListPublicByReviewee(ctx, revieweeID, domain.RoleOwner, 1, 1)
	if err != nil {
		t.Fatalf("Paged listing failed: %v", err)
	}
	if total != 2 || len(page) != 1 {
		t.Fatalf("Expected total=2 with one page entry, got total=%d len=%d", total, len(page))
	}
}
