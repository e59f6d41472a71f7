package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trust-service/internal/adapters/memory"
	"trust-service/internal/adapters/storage"
	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

type livenessFixture struct {
	svc      *LivenessService
	users    *memory.UserStore
	store    *memory.LivenessStore
	analyzer *stubAnalyzer
	blobs    *storage.MemoryStore
	queue    *recordQueue
	bus      *syncBus
}

func newLivenessFixture(t *testing.T) *livenessFixture {
	t.Helper()
	f := &livenessFixture{
		users:    memory.NewUserStore(),
		store:    memory.NewLivenessStore(),
		analyzer: &stubAnalyzer{result: okLivenessResult()},
		blobs:    storage.NewMemoryStore(),
		queue:    &recordQueue{},
		bus:      newSyncBus(),
	}
	f.svc = NewLivenessService(f.store, f.users, f.analyzer, f.blobs, f.queue, f.bus, LivenessConfig{}, &nopLogger)
	return f
}

func TestLivenessService_SubmitVideo(t *testing.T) {
	ctx := context.Background()
	video := []byte("fake mp4 bytes")

	t.Run("accepts and enqueues", func(t *testing.T) {
		f := newLivenessFixture(t)
		seedUser(ctx, f.users, "u1")

		rec, err := f.svc.SubmitVideo(ctx, "u1", video, "video/mp4")
		require.NoError(t, err)
		assert.Equal(t, domain.LivenessPending, rec.Status)
		assert.NotEmpty(t, rec.VideoRef)
		assert.NotEmpty(t, rec.VideoHash)
		assert.Equal(t, 1, f.queue.count())

		_, stored := f.blobs.Get(rec.VideoRef)
		assert.True(t, stored)
	})

	t.Run("rejects oversize payloads", func(t *testing.T) {
		f := newLivenessFixture(t)
		f.svc = NewLivenessService(f.store, f.users, f.analyzer, f.blobs, f.queue, f.bus,
			LivenessConfig{MaxVideoBytes: 8}, &nopLogger)

		_, err := f.svc.SubmitVideo(ctx, "u1", video, "video/mp4")
		assert.ErrorIs(t, err, domain.ErrPayloadTooLarge)
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		f := newLivenessFixture(t)
		_, err := f.svc.SubmitVideo(ctx, "u1", video, "image/gif")
		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	})

	t.Run("empty body is missing fields", func(t *testing.T) {
		f := newLivenessFixture(t)
		_, err := f.svc.SubmitVideo(ctx, "u1", nil, "video/mp4")
		assert.ErrorIs(t, err, domain.ErrMissingFields)
	})
}

func TestLivenessService_ProcessSession(t *testing.T) {
	ctx := context.Background()
	video := []byte("fake mp4 bytes")

	submit := func(t *testing.T, f *livenessFixture, userID string) *domain.LivenessCheck {
		t.Helper()
		seedUser(ctx, f.users, userID)
		rec, err := f.svc.SubmitVideo(ctx, userID, video, "video/mp4")
		require.NoError(t, err)
		return rec
	}

	t.Run("pass updates the user and schedules the video purge", func(t *testing.T) {
		f := newLivenessFixture(t)
		rec := submit(t, f, "u1")

		require.NoError(t, f.svc.ProcessSession(ctx, rec.ID))

		got, err := f.store.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LivenessPassed, got.Status)
		assert.True(t, got.Passed)
		require.NotNil(t, got.VideoPurgeAt)
		assert.WithinDuration(t, time.Now().Add(domain.LivenessVideoRetention), *got.VideoPurgeAt, 5*time.Second)

		user, err := f.users.GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, user.Verification.LivenessVerified)
		assert.Equal(t, 85.0, user.Verification.LivenessScore)
		assert.True(t, user.HasBadge(domain.BadgeLivenessVerified))
		assert.Equal(t, 1, f.bus.published(ports.TopicVerificationPassed))
	})

	t.Run("screen replay fails even above the score threshold", func(t *testing.T) {
		f := newLivenessFixture(t)
		f.analyzer.result = okLivenessResult()
		f.analyzer.result.Checks.ScreenDetection = true
		rec := submit(t, f, "u1")

		require.NoError(t, f.svc.ProcessSession(ctx, rec.ID))

		got, _ := f.store.GetByID(ctx, rec.ID)
		assert.Equal(t, domain.LivenessFailed, got.Status)
		assert.Equal(t, "screen replay detected", got.FailureReason)
		assert.Equal(t, 0, f.bus.published(ports.TopicVerificationPassed))
	})

	t.Run("no face dominates other failure reasons", func(t *testing.T) {
		f := newLivenessFixture(t)
		f.analyzer.result = &ports.LivenessResult{FaceDetected: false, FaceQuality: 10, Score: 20}
		rec := submit(t, f, "u1")

		require.NoError(t, f.svc.ProcessSession(ctx, rec.ID))

		got, _ := f.store.GetByID(ctx, rec.ID)
		assert.Equal(t, "no face detected in the video", got.FailureReason)
	})

	t.Run("low score below threshold fails", func(t *testing.T) {
		f := newLivenessFixture(t)
		f.analyzer.result = &ports.LivenessResult{FaceDetected: true, FaceQuality: 80, Score: 69.9}
		rec := submit(t, f, "u1")

		require.NoError(t, f.svc.ProcessSession(ctx, rec.ID))

		got, _ := f.store.GetByID(ctx, rec.ID)
		assert.Equal(t, domain.LivenessFailed, got.Status)
		assert.Contains(t, got.FailureReason, "confidence too low")
	})

	t.Run("provider error is recorded, not propagated", func(t *testing.T) {
		f := newLivenessFixture(t)
		f.analyzer.analyzeErr = errors.New("vendor 500")
		rec := submit(t, f, "u1")

		require.NoError(t, f.svc.ProcessSession(ctx, rec.ID))

		got, _ := f.store.GetByID(ctx, rec.ID)
		assert.Equal(t, domain.LivenessError, got.Status)
		assert.Contains(t, got.FailureReason, "vendor 500", "reason must carry the provider error")
		assert.NotNil(t, got.VideoPurgeAt, "failed analyses still schedule the purge")
	})

	t.Run("terminal sessions are not reprocessed", func(t *testing.T) {
		f := newLivenessFixture(t)
		rec := submit(t, f, "u1")
		require.NoError(t, f.svc.ProcessSession(ctx, rec.ID))

		f.analyzer.analyzeErr = errors.New("should not be called")
		require.NoError(t, f.svc.ProcessSession(ctx, rec.ID))

		got, _ := f.store.GetByID(ctx, rec.ID)
		assert.Equal(t, domain.LivenessPassed, got.Status)
	})
}

func TestLivenessService_Retry(t *testing.T) {
	ctx := context.Background()
	f := newLivenessFixture(t)
	seedUser(ctx, f.users, "u1")

	f.analyzer.analyzeErr = errors.New("vendor down")
	rec, err := f.svc.SubmitVideo(ctx, "u1", bytes.Repeat([]byte("x"), 16), "video/webm")
	require.NoError(t, err)
	require.NoError(t, f.svc.ProcessSession(ctx, rec.ID))

	retried, err := f.svc.Retry(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LivenessPending, retried.Status)
	assert.Equal(t, 2, f.queue.count())

	// Pending sessions cannot be retried again.
	_, err = f.svc.Retry(ctx, rec.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessing)
}
