package postgres

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

type smsRepository struct {
	db     *DB
	secSvc ports.SecurityPort
	log    zerolog.Logger
}

var _ ports.SMSVerificationRepository = (*smsRepository)(nil)

// NewSMSRepository creates a new repository for SMS verification records.
// The one-pending-code-per-user rule is enforced by a partial unique index,
// so concurrent sends race at the database rather than in application code.
func NewSMSRepository(db *DB, secSvc ports.SecurityPort, baseLogger *zerolog.Logger) ports.SMSVerificationRepository {
	return &smsRepository{
		db:     db,
		secSvc: secSvc,
		log:    baseLogger.With().Str("component", "sms_repo").Logger(),
	}
}

const smsQueryCols = `
	id, user_id, phone, code_hash, status, attempts, max_attempts,
	provider, provider_message_id, ip_address, sent_at, expires_at, verified_at
`

func (r *smsRepository) Create(ctx context.Context, v *domain.SMSVerification) error {
	encBytes, err := r.secSvc.Encrypt([]byte(v.Phone))
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to encrypt phone number")
		return err
	}
	encPhone := base64.StdEncoding.EncodeToString(encBytes)

	// The partial unique index has no expiry predicate, so a lapsed pending
	// row would block this insert until the retention sweep catches it.
	// Expire any such row first.
	_, err = r.db.pool.Exec(ctx,
		`UPDATE sms_verifications SET status = $1
		 WHERE user_id = $2 AND status = $3 AND expires_at <= now()`,
		domain.SMSExpired, v.UserID, domain.SMSPending)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", v.UserID).Msg("Failed to expire stale SMS verifications")
		return err
	}

	query := `
		INSERT INTO sms_verifications (
			id, user_id, phone, code_hash, status, attempts, max_attempts,
			provider, provider_message_id, ip_address, sent_at, expires_at, verified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = r.db.pool.Exec(ctx, query,
		v.ID,
		v.UserID,
		encPhone,
		v.CodeHash,
		v.Status,
		v.Attempts,
		v.MaxAttempts,
		v.Provider,
		v.ProviderMessageID,
		v.IPAddress,
		v.SentAt,
		v.ExpiresAt,
		v.VerifiedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		r.log.Error().Err(err).Str("user_id", v.UserID).Msg("Failed to insert SMS verification")
		return err
	}
	return nil
}

func (r *smsRepository) scan(row pgx.Row) (*domain.SMSVerification, error) {
	var v domain.SMSVerification
	var encPhone string

	err := row.Scan(
		&v.ID,
		&v.UserID,
		&encPhone,
		&v.CodeHash,
		&v.Status,
		&v.Attempts,
		&v.MaxAttempts,
		&v.Provider,
		&v.ProviderMessageID,
		&v.IPAddress,
		&v.SentAt,
		&v.ExpiresAt,
		&v.VerifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.log.Error().Err(err).Msg("Failed to scan SMS verification row")
		return nil, err
	}

	decBytes, err := base64.StdEncoding.DecodeString(encPhone)
	if err != nil {
		r.log.Error().Err(err).Str("id", v.ID).Msg("Failed to base64-decode phone number")
		return nil, err
	}
	dec, err := r.secSvc.Decrypt(decBytes)
	if err != nil {
		r.log.Error().Err(err).Str("id", v.ID).Msg("Failed to decrypt phone number (tampered?)")
		return nil, err
	}
	v.Phone = string(dec)
	return &v, nil
}

func (r *smsRepository) GetByID(ctx context.Context, id string) (*domain.SMSVerification, error) {
	query := `SELECT ` + smsQueryCols + ` FROM sms_verifications WHERE id = $1`
	return r.scan(r.db.pool.QueryRow(ctx, query, id))
}

func (r *smsRepository) GetPending(ctx context.Context, id, userID string) (*domain.SMSVerification, error) {
	query := `SELECT ` + smsQueryCols + `
		FROM sms_verifications
		WHERE id = $1 AND user_id = $2 AND status = 'pending'`
	return r.scan(r.db.pool.QueryRow(ctx, query, id, userID))
}

func (r *smsRepository) FindActiveByUser(ctx context.Context, userID string, now time.Time) (*domain.SMSVerification, error) {
	query := `SELECT ` + smsQueryCols + `
		FROM sms_verifications
		WHERE user_id = $1 AND status = 'pending' AND expires_at > $2
		ORDER BY sent_at DESC
		LIMIT 1`
	return r.scan(r.db.pool.QueryRow(ctx, query, userID, now))
}

func (r *smsRepository) Update(ctx context.Context, v *domain.SMSVerification) error {
	query := `
		UPDATE sms_verifications SET
			status = $2, attempts = $3, verified_at = $4
		WHERE id = $1
	`
	tag, err := r.db.pool.Exec(ctx, query, v.ID, v.Status, v.Attempts, v.VerifiedAt)
	if err != nil {
		r.log.Error().Err(err).Str("id", v.ID).Msg("Failed to update SMS verification")
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *smsRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.db.pool.Exec(ctx,
		`DELETE FROM sms_verifications WHERE expires_at < $1`, cutoff)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to purge SMS verifications")
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
