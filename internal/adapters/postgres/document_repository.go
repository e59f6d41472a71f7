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

type documentRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.IDVerificationRepository = (*documentRepository)(nil)

// NewDocumentRepository creates a new repository for document submissions.
// The OCR payload is stored as JSONB; the national ID inside it is already
// ciphertext by the time it reaches this layer.
func NewDocumentRepository(db *DB, baseLogger *zerolog.Logger) ports.IDVerificationRepository {
	return &documentRepository{
		db:  db,
		log: baseLogger.With().Str("component", "document_repo").Logger(),
	}
}

const documentQueryCols = `
	id, user_id, document_type, front_image_ref, back_image_ref,
	front_image_hash, back_image_hash, ocr, ocr_confidence, checks,
	face_match, status, passed, rejection_reason, reviewed_by, reviewed_at,
	review_notes, created_at, processed_at, expires_at
`

func (r *documentRepository) Create(ctx context.Context, v *domain.IDVerification) error {
	query := `
		INSERT INTO id_verifications (
			id, user_id, document_type, front_image_ref, back_image_ref,
			front_image_hash, back_image_hash, ocr, ocr_confidence, checks,
			face_match, status, passed, rejection_reason, reviewed_by, reviewed_at,
			review_notes, created_at, processed_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := r.db.pool.Exec(ctx, query,
		v.ID, v.UserID, v.DocumentType, v.FrontImageRef, v.BackImageRef,
		v.FrontImageHash, v.BackImageHash, v.OCR, v.OCRConfidence, v.Checks,
		v.FaceMatch, v.Status, v.Passed, v.RejectionReason, v.ReviewedBy,
		v.ReviewedAt, v.ReviewNotes, v.CreatedAt, v.ProcessedAt, v.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		r.log.Error().Err(err).Str("verification_id", v.ID).Msg("Failed to insert document submission")
		return err
	}
	return nil
}

func (r *documentRepository) scan(row pgx.Row) (*domain.IDVerification, error) {
	var v domain.IDVerification
	err := row.Scan(
		&v.ID, &v.UserID, &v.DocumentType, &v.FrontImageRef, &v.BackImageRef,
		&v.FrontImageHash, &v.BackImageHash, &v.OCR, &v.OCRConfidence, &v.Checks,
		&v.FaceMatch, &v.Status, &v.Passed, &v.RejectionReason, &v.ReviewedBy,
		&v.ReviewedAt, &v.ReviewNotes, &v.CreatedAt, &v.ProcessedAt, &v.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.log.Error().Err(err).Msg("Failed to scan document row")
		return nil, err
	}
	return &v, nil
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*domain.IDVerification, error) {
	query := `SELECT ` + documentQueryCols + ` FROM id_verifications WHERE id = $1`
	return r.scan(r.db.pool.QueryRow(ctx, query, id))
}

func (r *documentRepository) Update(ctx context.Context, v *domain.IDVerification) error {
	query := `
		UPDATE id_verifications SET
			front_image_ref = $2, back_image_ref = $3, ocr = $4,
			ocr_confidence = $5, checks = $6, face_match = $7, status = $8,
			passed = $9, rejection_reason = $10, reviewed_by = $11,
			reviewed_at = $12, review_notes = $13, processed_at = $14
		WHERE id = $1
	`
	tag, err := r.db.pool.Exec(ctx, query,
		v.ID, v.FrontImageRef, v.BackImageRef, v.OCR,
		v.OCRConfidence, v.Checks, v.FaceMatch, v.Status,
		v.Passed, v.RejectionReason, v.ReviewedBy,
		v.ReviewedAt, v.ReviewNotes, v.ProcessedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("verification_id", v.ID).Msg("Failed to update document submission")
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *documentRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.IDVerification, error) {
	query := `SELECT ` + documentQueryCols + `
		FROM id_verifications
		WHERE expires_at <= $1
		ORDER BY expires_at
		LIMIT $2`
	rows, err := r.db.pool.Query(ctx, query, now, limit)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list expired submissions")
		return nil, err
	}
	defer rows.Close()

	var out []*domain.IDVerification
	for rows.Next() {
		v, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *documentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM id_verifications WHERE id = $1`, id)
	if err != nil {
		r.log.Error().Err(err).Str("verification_id", id).Msg("Failed to delete document submission")
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
