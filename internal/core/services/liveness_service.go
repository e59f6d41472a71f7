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

var allowedVideoTypes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
}

// LivenessConfig tunes video intake and the pass decision.
type LivenessConfig struct {
	MaxVideoBytes  int64
	PassThreshold  float64
	MinFaceQuality float64
	VideoRetention time.Duration
}

func (c LivenessConfig) withDefaults() LivenessConfig {
	if c.MaxVideoBytes <= 0 {
		c.MaxVideoBytes = 50 << 20
	}
	if c.PassThreshold <= 0 {
		c.PassThreshold = domain.LivenessPassThreshold
	}
	if c.MinFaceQuality <= 0 {
		c.MinFaceQuality = 50
	}
	if c.VideoRetention <= 0 {
		c.VideoRetention = domain.LivenessVideoRetention
	}
	return c
}

// LivenessService accepts selfie videos, stores them, and runs the
// asynchronous liveness analysis that drives the second verification tier.
type LivenessService struct {
	liveRepo ports.LivenessRepository
	userRepo ports.UserRepository
	analyzer ports.LivenessAnalyzer
	blobs    ports.BlobStore
	queue    ports.TaskQueue
	bus      ports.EventBus
	cfg      LivenessConfig
	log      zerolog.Logger
}

func NewLivenessService(
	liveRepo ports.LivenessRepository,
	userRepo ports.UserRepository,
	analyzer ports.LivenessAnalyzer,
	blobs ports.BlobStore,
	queue ports.TaskQueue,
	bus ports.EventBus,
	cfg LivenessConfig,
	baseLogger *zerolog.Logger,
) *LivenessService {
	return &LivenessService{
		liveRepo: liveRepo,
		userRepo: userRepo,
		analyzer: analyzer,
		blobs:    blobs,
		queue:    queue,
		bus:      bus,
		cfg:      cfg.withDefaults(),
		log:      baseLogger.With().Str("component", "liveness_service").Logger(),
	}
}

// SubmitVideo validates and stores the video, creates a pending session, and
// enqueues the analysis. The caller gets the session back immediately; the
// verdict arrives through the status endpoint.
func (s *LivenessService) SubmitVideo(ctx context.Context, userID string, video []byte, mimeType string) (*domain.LivenessCheck, error) {
	if len(video) == 0 {
		return nil, domain.ErrMissingFields
	}
	if int64(len(video)) > s.cfg.MaxVideoBytes {
		return nil, domain.ErrPayloadTooLarge
	}
	if !allowedVideoTypes[mimeType] {
		return nil, domain.ErrUnsupportedFormat
	}

	up, err := s.blobs.Upload(ctx, video, userID+"/liveness", mimeType)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Video upload failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	rec := &domain.LivenessCheck{
		ID:        "live_" + uuid.NewString(),
		UserID:    userID,
		Status:    domain.LivenessPending,
		Provider:  s.analyzer.Name(),
		VideoRef:  up.Ref,
		VideoHash: up.SHA256,
		CreatedAt: time.Now(),
	}
	if err := s.liveRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	if err := s.queue.Enqueue(ctx, ports.Task{Kind: ports.TaskLivenessAnalysis, RecordID: rec.ID}); err != nil {
		s.log.Error().Err(err).Str("session_id", rec.ID).Msg("Failed to enqueue liveness analysis")
		return nil, fmt.Errorf("enqueue analysis: %w", err)
	}

	s.log.Info().Str("session_id", rec.ID).Str("user_id", userID).Msg("Liveness video accepted")
	return rec, nil
}

// ProcessSession runs the provider analysis for one session. It always leaves
// the record in a terminal state, so provider failures are recorded rather
// than returned to the worker.
func (s *LivenessService) ProcessSession(ctx context.Context, sessionID string) error {
	rec, err := s.liveRepo.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if rec.Terminal() {
		return nil
	}

	rec.Status = domain.LivenessProcessing
	if err := s.liveRepo.Update(ctx, rec); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	res, err := s.analyzer.Analyze(ctx, rec.VideoRef)
	now := time.Now()
	purgeAt := now.Add(s.cfg.VideoRetention)
	rec.ProcessedAt = &now
	rec.VideoPurgeAt = &purgeAt

	if err != nil {
		rec.Status = domain.LivenessError
		rec.FailureReason = fmt.Sprintf("liveness analysis unavailable, please retry: %v", err)
		if uerr := s.liveRepo.Update(ctx, rec); uerr != nil {
			return fmt.Errorf("record provider error: %w", uerr)
		}
		s.log.Error().Err(err).Str("session_id", rec.ID).Msg("Liveness provider failed")
		return nil
	}

	rec.Score = res.Score
	rec.FaceDetected = res.FaceDetected
	rec.FaceQuality = res.FaceQuality
	rec.Checks = res.Checks
	rec.Passed = res.Score >= s.cfg.PassThreshold && res.FaceDetected && !res.Checks.ScreenDetection

	if rec.Passed {
		rec.Status = domain.LivenessPassed
	} else {
		rec.Status = domain.LivenessFailed
		rec.FailureReason = s.failureReason(res)
	}

	if err := s.liveRepo.Update(ctx, rec); err != nil {
		return fmt.Errorf("record verdict: %w", err)
	}

	if rec.Passed {
		if err := s.applyPass(ctx, rec, now); err != nil {
			return err
		}
	}

	s.log.Info().
		Str("session_id", rec.ID).
		Str("status", string(rec.Status)).
		Float64("score", rec.Score).
		Msg("Liveness session processed")
	return nil
}

func (s *LivenessService) applyPass(ctx context.Context, rec *domain.LivenessCheck, now time.Time) error {
	user, err := s.userRepo.GetByID(ctx, rec.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	user.MarkLivenessVerified(rec.Score, now)
	user.AwardBadge(domain.BadgeLivenessVerified, now)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if err := s.bus.Publish(ctx, ports.TopicVerificationPassed, ports.UserEvent{UserID: rec.UserID}); err != nil {
		s.log.Error().Err(err).Str("user_id", rec.UserID).Msg("Failed to publish verification event")
	}
	return nil
}

// failureReason picks the most actionable explanation for the user. Earlier
// conditions dominate later ones.
func (s *LivenessService) failureReason(res *ports.LivenessResult) string {
	switch {
	case !res.FaceDetected:
		return "no face detected in the video"
	case res.FaceQuality < s.cfg.MinFaceQuality:
		return "face image quality too low, please record in better lighting"
	case res.Checks.ScreenDetection:
		return "screen replay detected"
	case res.Score < s.cfg.PassThreshold:
		return "liveness confidence too low, please follow the on-screen instructions"
	default:
		return "liveness check failed"
	}
}

// Status returns the session for polling clients.
func (s *LivenessService) Status(ctx context.Context, sessionID string) (*domain.LivenessCheck, error) {
	rec, err := s.liveRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return rec, nil
}

// Retry re-enqueues a session that ended in failure or provider error.
func (s *LivenessService) Retry(ctx context.Context, sessionID string) (*domain.LivenessCheck, error) {
	rec, err := s.liveRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if rec.Status == domain.LivenessProcessing || rec.Status == domain.LivenessPending {
		return nil, domain.ErrAlreadyProcessing
	}
	if rec.VideoRef == "" {
		// Video already purged; a new submission is required.
		return nil, domain.ErrNotFound
	}

	rec.Status = domain.LivenessPending
	rec.FailureReason = ""
	if err := s.liveRepo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("reset session: %w", err)
	}
	if err := s.queue.Enqueue(ctx, ports.Task{Kind: ports.TaskLivenessAnalysis, RecordID: rec.ID}); err != nil {
		return nil, fmt.Errorf("enqueue analysis: %w", err)
	}
	return rec, nil
}
