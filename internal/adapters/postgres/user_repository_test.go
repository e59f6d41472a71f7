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

func TestUserRepository_CreateGetRoundtrip(t *testing.T) {
	requireTestDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	user := &domain.User{
		ID:    uuid.NewString(),
		Phone: "+77071234567",
		Email: "nurlan@example.kz",
		Name:  "Nurlan A.",
		Verification: domain.Verification{
			PhoneVerified: true,
			Level:         1,
		},
		Badges:     []domain.Badge{{Type: domain.BadgePhoneVerified, EarnedAt: time.Now()}},
		TrustScore: 10,
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	defer cleanupRow(t, "users", user.ID)

	found, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}

	if found.Phone != user.Phone {
		t.Errorf("Phone mismatch (decryption failed?): got %s, want %s", found.Phone, user.Phone)
	}
	if !found.Verification.PhoneVerified {
		t.Error("PhoneVerified flag lost in the verification JSONB roundtrip")
	}
	if len(found.Badges) != 1 || found.Badges[0].Type != domain.BadgePhoneVerified {
		t.Errorf("Badges mismatch: got %+v", found.Badges)
	}
	if found.TrustScore != 10 {
		t.Errorf("TrustScore mismatch: got %d, want 10", found.TrustScore)
	}

	// The stored phone column must not contain the plaintext.
	var stored *string
	err = testDB.pool.QueryRow(ctx, "SELECT phone FROM users WHERE id = $1", user.ID).Scan(&stored)
	if err != nil {
		t.Fatalf("Failed to read raw phone column: %v", err)
	}
	if stored == nil || *stored == user.Phone {
		t.Error("Phone is stored in clear text")
	}
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	requireTestDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got: %v", err)
	}
}

func TestUserRepository_Update(t *testing.T) {
	requireTestDB(t)
	nopLogger := zerolog.Nop()
	repo := NewUserRepository(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	user := &domain.User{ID: uuid.NewString(), Name: "Before"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	defer cleanupRow(t, "users", user.ID)

	user.Name = "After"
	user.MarkPhoneVerified(time.Now())
	user.TrustScore = 10
	if err := repo.Update(ctx, user); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	updated, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Name != "After" {
		t.Errorf("Name was not updated: got %s", updated.Name)
	}
	if !updated.Verification.PhoneVerified || updated.Verification.Level != 1 {
		t.Errorf("Verification was not updated: got %+v", updated.Verification)
	}
}
