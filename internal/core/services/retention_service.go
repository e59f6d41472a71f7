package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

// RetentionConfig tunes the periodic purge.
type RetentionConfig struct {
	SweepInterval     time.Duration
	SMSGrace          time.Duration // kept past expiry for audit
	LivenessRecordTTL time.Duration
	BatchSize         int
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.SweepInterval <= 0 {
		c.SweepInterval = 10 * time.Minute
	}
	if c.SMSGrace <= 0 {
		c.SMSGrace = 24 * time.Hour
	}
	if c.LivenessRecordTTL <= 0 {
		c.LivenessRecordTTL = domain.LivenessRecordRetention
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

// RetentionService enforces the data-retention policy: raw liveness videos
// are purged once their deadline passes, expired SMS records after a grace
// period, liveness session records after 30 days, and document records after
// 90 days together with their images. Deadlines live on the records, so the
// sweep picks up where a crashed process left off.
type RetentionService struct {
	smsRepo  ports.SMSVerificationRepository
	liveRepo ports.LivenessRepository
	docRepo  ports.IDVerificationRepository
	blobs    ports.BlobStore
	cfg      RetentionConfig
	log      zerolog.Logger
}

func NewRetentionService(
	smsRepo ports.SMSVerificationRepository,
	liveRepo ports.LivenessRepository,
	docRepo ports.IDVerificationRepository,
	blobs ports.BlobStore,
	cfg RetentionConfig,
	baseLogger *zerolog.Logger,
) *RetentionService {
	return &RetentionService{
		smsRepo:  smsRepo,
		liveRepo: liveRepo,
		docRepo:  docRepo,
		blobs:    blobs,
		cfg:      cfg.withDefaults(),
		log:      baseLogger.With().Str("component", "retention_service").Logger(),
	}
}

// Run sweeps immediately and then on every tick until the context ends.
func (s *RetentionService) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.cfg.SweepInterval).Msg("Retention sweeper started")
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Retention sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one full purge pass. Individual failures are logged and
// skipped; the next pass retries them.
func (s *RetentionService) Sweep(ctx context.Context) {
	now := time.Now()
	s.purgeVideos(ctx, now)
	s.purgeSMS(ctx, now)
	s.purgeLivenessRecords(ctx, now)
	s.purgeDocuments(ctx, now)
}

func (s *RetentionService) purgeVideos(ctx context.Context, now time.Time) {
	due, err := s.liveRepo.ListVideoPurgeDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("Video purge listing failed")
		return
	}
	for _, rec := range due {
		if err := s.blobs.Delete(ctx, rec.VideoRef); err != nil {
			s.log.Error().Err(err).Str("session_id", rec.ID).Msg("Video delete failed")
			continue
		}
		rec.VideoRef = ""
		if err := s.liveRepo.Update(ctx, rec); err != nil {
			s.log.Error().Err(err).Str("session_id", rec.ID).Msg("Failed to clear video reference")
			continue
		}
		s.log.Info().Str("session_id", rec.ID).Msg("Liveness video purged")
	}
}

func (s *RetentionService) purgeSMS(ctx context.Context, now time.Time) {
	n, err := s.smsRepo.DeleteExpiredBefore(ctx, now.Add(-s.cfg.SMSGrace))
	if err != nil {
		s.log.Error().Err(err).Msg("SMS purge failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("count", n).Msg("Expired SMS records purged")
	}
}

func (s *RetentionService) purgeLivenessRecords(ctx context.Context, now time.Time) {
	n, err := s.liveRepo.DeleteCreatedBefore(ctx, now.Add(-s.cfg.LivenessRecordTTL))
	if err != nil {
		s.log.Error().Err(err).Msg("Liveness record purge failed")
		return
	}
	if n > 0 {
		s.log.Info().Int("count", n).Msg("Liveness records purged")
	}
}

func (s *RetentionService) purgeDocuments(ctx context.Context, now time.Time) {
	expired, err := s.docRepo.ListExpired(ctx, now, s.cfg.BatchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("Document purge listing failed")
		return
	}
	for _, rec := range expired {
		failed := false
		for _, ref := range []string{rec.FrontImageRef, rec.BackImageRef} {
			if ref == "" {
				continue
			}
			if err := s.blobs.Delete(ctx, ref); err != nil {
				s.log.Error().Err(err).Str("verification_id", rec.ID).Str("ref", ref).Msg("Document image delete failed")
				failed = true
			}
		}
		if failed {
			continue
		}
		if err := s.docRepo.Delete(ctx, rec.ID); err != nil {
			s.log.Error().Err(err).Str("verification_id", rec.ID).Msg("Document record delete failed")
			continue
		}
		s.log.Info().Str("verification_id", rec.ID).Msg("Document record purged")
	}
}
