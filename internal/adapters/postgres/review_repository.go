package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

type reviewRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.ReviewRepository = (*reviewRepository)(nil)

// NewReviewRepository creates a new repository for reviews. The
// one-review-per-reviewer-per-transaction rule is a unique constraint.
func NewReviewRepository(db *DB, baseLogger *zerolog.Logger) ports.ReviewRepository {
	return &reviewRepository{
		db:  db,
		log: baseLogger.With().Str("component", "review_repo").Logger(),
	}
}

const reviewQueryCols = `
	id, reviewer_id, reviewer_name, reviewee_id, reviewee_name,
	transaction_id, item_id, item_name, role, rating, detailed, comment,
	tags, is_public, response, created_at
`

func (r *reviewRepository) Create(ctx context.Context, rev *domain.Review) error {
	query := `
		INSERT INTO reviews (
			id, reviewer_id, reviewer_name, reviewee_id, reviewee_name,
			transaction_id, item_id, item_name, role, rating, detailed, comment,
			tags, is_public, response, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.pool.Exec(ctx, query,
		rev.ID, rev.ReviewerID, rev.ReviewerName, rev.RevieweeID, rev.RevieweeName,
		rev.TransactionID, rev.ItemID, rev.ItemName, rev.Role, rev.Rating,
		rev.Detailed, rev.Comment, rev.Tags, rev.IsPublic, rev.Response, rev.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		r.log.Error().Err(err).Str("review_id", rev.ID).Msg("Failed to insert review")
		return err
	}
	return nil
}

func (r *reviewRepository) scan(row pgx.Row) (*domain.Review, error) {
	var rev domain.Review
	err := row.Scan(
		&rev.ID, &rev.ReviewerID, &rev.ReviewerName, &rev.RevieweeID, &rev.RevieweeName,
		&rev.TransactionID, &rev.ItemID, &rev.ItemName, &rev.Role, &rev.Rating,
		&rev.Detailed, &rev.Comment, &rev.Tags, &rev.IsPublic, &rev.Response, &rev.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.log.Error().Err(err).Msg("Failed to scan review row")
		return nil, err
	}
	return &rev, nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `SELECT ` + reviewQueryCols + ` FROM reviews WHERE id = $1`
	return r.scan(r.db.pool.QueryRow(ctx, query, id))
}

func (r *reviewRepository) Update(ctx context.Context, rev *domain.Review) error {
	query := `
		UPDATE reviews SET
			comment = $2, tags = $3, is_public = $4, response = $5
		WHERE id = $1
	`
	tag, err := r.db.pool.Exec(ctx, query,
		rev.ID, rev.Comment, rev.Tags, rev.IsPublic, rev.Response)
	if err != nil {
		r.log.Error().Err(err).Str("review_id", rev.ID).Msg("Failed to update review")
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *reviewRepository) FindByReviewerAndTransaction(ctx context.Context, reviewerID, transactionID string) (*domain.Review, error) {
	query := `SELECT ` + reviewQueryCols + `
		FROM reviews
		WHERE reviewer_id = $1 AND transaction_id = $2`
	return r.scan(r.db.pool.QueryRow(ctx, query, reviewerID, transactionID))
}

func (r *reviewRepository) ListPublicByReviewee(ctx context.Context, revieweeID string, role domain.ReviewRole, offset, limit int) ([]*domain.Review, int, error) {
	where := `WHERE reviewee_id = $1 AND is_public`
	args := []interface{}{revieweeID}
	if role != "" {
		where += ` AND role = $2`
		args = append(args, role)
	}

	var total int
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews `+where, args...).Scan(&total); err != nil {
		r.log.Error().Err(err).Msg("Failed to count reviews")
		return nil, 0, err
	}

	query := `SELECT ` + reviewQueryCols + ` FROM reviews ` + where + ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
		args = append(args, offset, limit)
	}

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list reviews")
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.Review
	for rows.Next() {
		rev, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rev)
	}
	return out, total, rows.Err()
}
