package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

type livenessRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.LivenessRepository = (*livenessRepository)(nil)

// NewLivenessRepository creates a new repository for liveness sessions.
func NewLivenessRepository(db *DB, baseLogger *zerolog.Logger) ports.LivenessRepository {
	return &livenessRepository{
		db:  db,
		log: baseLogger.With().Str("component", "liveness_repo").Logger(),
	}
}

const livenessQueryCols = `
	id, user_id, video_ref, video_hash, provider, score, face_detected,
	face_quality, checks, passed, status, failure_reason,
	created_at, processed_at, video_purge_at
`

func (r *livenessRepository) Create(ctx context.Context, c *domain.LivenessCheck) error {
	query := `
		INSERT INTO liveness_checks (
			id, user_id, video_ref, video_hash, provider, score, face_detected,
			face_quality, checks, passed, status, failure_reason,
			created_at, processed_at, video_purge_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.pool.Exec(ctx, query,
		c.ID, c.UserID, c.VideoRef, c.VideoHash, c.Provider, c.Score,
		c.FaceDetected, c.FaceQuality, c.Checks, c.Passed, c.Status,
		c.FailureReason, c.CreatedAt, c.ProcessedAt, c.VideoPurgeAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		r.log.Error().Err(err).Str("session_id", c.ID).Msg("Failed to insert liveness session")
		return err
	}
	return nil
}

func (r *livenessRepository) scan(row pgx.Row) (*domain.LivenessCheck, error) {
	var c domain.LivenessCheck
	err := row.Scan(
		&c.ID, &c.UserID, &c.VideoRef, &c.VideoHash, &c.Provider, &c.Score,
		&c.FaceDetected, &c.FaceQuality, &c.Checks, &c.Passed, &c.Status,
		&c.FailureReason, &c.CreatedAt, &c.ProcessedAt, &c.VideoPurgeAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.log.Error().Err(err).Msg("Failed to scan liveness row")
		return nil, err
	}
	return &c, nil
}

func (r *livenessRepository) GetByID(ctx context.Context, sessionID string) (*domain.LivenessCheck, error) {
	query := `SELECT ` + livenessQueryCols + ` FROM liveness_checks WHERE id = $1`
	return r.scan(r.db.pool.QueryRow(ctx, query, sessionID))
}

func (r *livenessRepository) Update(ctx context.Context, c *domain.LivenessCheck) error {
	query := `
		UPDATE liveness_checks SET
			video_ref = $2, score = $3, face_detected = $4, face_quality = $5,
			checks = $6, passed = $7, status = $8, failure_reason = $9,
			processed_at = $10, video_purge_at = $11
		WHERE id = $1
	`
	tag, err := r.db.pool.Exec(ctx, query,
		c.ID, c.VideoRef, c.Score, c.FaceDetected, c.FaceQuality,
		c.Checks, c.Passed, c.Status, c.FailureReason,
		c.ProcessedAt, c.VideoPurgeAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("session_id", c.ID).Msg("Failed to update liveness session")
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *livenessRepository) FindLatestPassed(ctx context.Context, userID string) (*domain.LivenessCheck, error) {
	query := `SELECT ` + livenessQueryCols + `
		FROM liveness_checks
		WHERE user_id = $1 AND status = 'passed'
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scan(r.db.pool.QueryRow(ctx, query, userID))
}

func (r *livenessRepository) ListVideoPurgeDue(ctx context.Context, now time.Time, limit int) ([]*domain.LivenessCheck, error) {
	query := `SELECT ` + livenessQueryCols + `
		FROM liveness_checks
		WHERE video_ref <> '' AND video_purge_at IS NOT NULL AND video_purge_at <= $1
		ORDER BY video_purge_at
		LIMIT $2`
	rows, err := r.db.pool.Query(ctx, query, now, limit)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list purge-due sessions")
		return nil, err
	}
	defer rows.Close()

	var out []*domain.LivenessCheck
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *livenessRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.db.pool.Exec(ctx,
		`DELETE FROM liveness_checks WHERE created_at < $1`, cutoff)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to purge liveness sessions")
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
