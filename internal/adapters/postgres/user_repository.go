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

type userRepository struct {
	db     *DB
	secSvc ports.SecurityPort
	log    zerolog.Logger
}

var _ ports.UserRepository = (*userRepository)(nil)

// NewUserRepository creates a new repository for user records. Phone
// numbers are encrypted before they touch the database and decrypted on
// the way out.
func NewUserRepository(db *DB, secSvc ports.SecurityPort, baseLogger *zerolog.Logger) ports.UserRepository {
	return &userRepository{
		db:     db,
		secSvc: secSvc,
		log:    baseLogger.With().Str("component", "user_repo").Logger(),
	}
}

func (r *userRepository) encryptPhone(phone string) (*string, error) {
	if phone == "" {
		return nil, nil
	}
	encBytes, err := r.secSvc.Encrypt([]byte(phone))
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to encrypt phone number")
		return nil, err
	}
	encStr := base64.StdEncoding.EncodeToString(encBytes)
	return &encStr, nil
}

func (r *userRepository) decryptPhone(enc *string) (string, error) {
	if enc == nil {
		return "", nil
	}
	decBytes, err := base64.StdEncoding.DecodeString(*enc)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to base64-decode phone number")
		return "", err
	}
	dec, err := r.secSvc.Decrypt(decBytes)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to decrypt phone number (tampered?)")
		return "", err
	}
	return string(dec), nil
}

const userQueryCols = `
	id, phone, email, name, password_hash, verification, rating,
	trust_score, badges, stats, created_at, updated_at
`

// Create encrypts sensitive data and saves a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	encPhone, err := r.encryptPhone(user.Phone)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (
			id, phone, email, name, password_hash, verification, rating,
			trust_score, badges, stats, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err = r.db.pool.Exec(ctx, query,
		user.ID,
		encPhone,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Verification,
		user.Rating,
		user.TrustScore,
		user.Badges,
		user.Stats,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		r.log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to insert user")
		return err
	}
	return nil
}

// scanUser reads one row and decrypts the phone.
func (r *userRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var encPhone *string

	err := row.Scan(
		&user.ID,
		&encPhone,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Verification,
		&user.Rating,
		&user.TrustScore,
		&user.Badges,
		&user.Stats,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.log.Error().Err(err).Msg("Failed to scan user row")
		return nil, err
	}

	user.Phone, err = r.decryptPhone(encPhone)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID finds and decrypts a user.
func (r *userRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT ` + userQueryCols + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.pool.QueryRow(ctx, query, userID))
}

// Update rewrites the mutable fields of a user record.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	encPhone, err := r.encryptPhone(user.Phone)
	if err != nil {
		return err
	}

	query := `
		UPDATE users SET
			phone = $2, email = $3, name = $4, password_hash = $5,
			verification = $6, rating = $7, trust_score = $8,
			badges = $9, stats = $10, updated_at = $11
		WHERE id = $1
	`
	user.UpdatedAt = time.Now()
	tag, err := r.db.pool.Exec(ctx, query,
		user.ID,
		encPhone,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Verification,
		user.Rating,
		user.TrustScore,
		user.Badges,
		user.Stats,
		user.UpdatedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update user")
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
