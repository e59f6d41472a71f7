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

func newTestSMSRecord(userID string) *domain.SMSVerification {
	now := time.Now()
	return &domain.SMSVerification{
		ID:          "sms_" + uuid.NewString(),
		UserID:      userID,
		Phone:       "+77071234567",
		CodeHash:    "$argon2id$v=19$m=65536,t=1,p=4$dGVzdA$dGVzdA",
		Status:      domain.SMSPending,
		MaxAttempts: 3,
		SentAt:      now,
		ExpiresAt:   now.Add(5 * time.Minute),
	}
}

func TestSMSRepository_OnePendingPerUser(t *testing.T) {
	requireTestDB(t)
	nopLogger := zerolog.Nop()
	repo := NewSMSRepository(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	userID := uuid.NewString()
	first := newTestSMSRecord(userID)
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Failed to create first record: %v", err)
	}
	defer cleanupRow(t, "sms_verifications", first.ID)

	// The partial unique index rejects a second pending record.
	second := newTestSMSRecord(userID)
	err := repo.Create(ctx, second)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Expected ErrConflict for second pending record, got: %v", err)
	}

	// Once the first leaves pending, a new one is allowed.
	first.Status = domain.SMSExpired
	if err := repo.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create after expiry failed: %v", err)
	}
	defer cleanupRow(t, "sms_verifications", second.ID)
}

func TestSMSRepository_LapsedPendingDoesNotBlock(t *testing.T) {
	requireTestDB(t)
	nopLogger := zerolog.Nop()
	repo := NewSMSRepository(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	// A pending record whose code lapsed without ever being verified. Nothing
	// else touches it until the retention sweep, so Create must not let it
	// hold the unique index slot.
	userID := uuid.NewString()
	stale := newTestSMSRecord(userID)
	stale.SentAt = time.Now().Add(-10 * time.Minute)
	stale.ExpiresAt = stale.SentAt.Add(5 * time.Minute)
	if err := repo.Create(ctx, stale); err != nil {
		t.Fatalf("Failed to create stale record: %v", err)
	}
	defer cleanupRow(t, "sms_verifications", stale.ID)

	fresh := newTestSMSRecord(userID)
	if err := repo.Create(ctx, fresh); err != nil {
		t.Fatalf("Create blocked by a lapsed pending record: %v", err)
	}
	defer cleanupRow(t, "sms_verifications", fresh.ID)

	got, err := repo.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.SMSExpired {
		t.Errorf("Stale record status: got %s, want %s", got.Status, domain.SMSExpired)
	}
}

func TestSMSRepository_FindActiveByUser(t *testing.T) {
	requireTestDB(t)
	nopLogger := zerolog.Nop()
	repo := NewSMSRepository(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	userID := uuid.NewString()
	rec := newTestSMSRecord(userID)
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Failed to create record: %v", err)
	}
	defer cleanupRow(t, "sms_verifications", rec.ID)

	found, err := repo.FindActiveByUser(ctx, userID, time.Now())
	if err != nil {
		t.Fatalf("FindActiveByUser failed: %v", err)
	}
	if found.ID != rec.ID {
		t.Errorf("ID mismatch: got %s, want %s", found.ID, rec.ID)
	}
	if found.Phone != rec.Phone {
		t.Errorf("Phone mismatch (decryption failed?): got %s, want %s", found.Phone, rec.Phone)
	}

	// Past its expiry the record is no longer active.
	_, err = repo.FindActiveByUser(ctx, userID, time.Now().Add(10*time.Minute))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound past expiry, got: %v", err)
	}
}

func TestSMSRepository_DeleteExpiredBefore(t *testing.T) {
	requireTestDB(t)
	nopLogger := zerolog.Nop()
	repo := NewSMSRepository(testDB, testSecSvc, &nopLogger)
	ctx := context.Background()

	rec := newTestSMSRecord(uuid.NewString())
	rec.SentAt = time.Now().Add(-48 * time.Hour)
	rec.ExpiresAt = rec.SentAt.Add(5 * time.Minute)
	rec.Status = domain.SMSExpired
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Failed to create record: %v", err)
	}
	defer cleanupRow(t, "sms_verifications", rec.ID)

	n, err := repo.DeleteExpiredBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpiredBefore failed: %v", err)
	}
	if n < 1 {
		t.Errorf("Expected at least one purged record, got %d", n)
	}

	if _, err := repo.GetByID(ctx, rec.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Record still present after purge: %v", err)
	}
}
