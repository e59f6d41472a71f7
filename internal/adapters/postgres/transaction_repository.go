package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"trust-service/internal/core/domain"
	"trust-service/internal/core/ports"
)

type transactionRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.TransactionRepository = (*transactionRepository)(nil)

// NewTransactionRepository creates a new repository for rental deals.
func NewTransactionRepository(db *DB, baseLogger *zerolog.Logger) ports.TransactionRepository {
	return &transactionRepository{
		db:  db,
		log: baseLogger.With().Str("component", "transaction_repo").Logger(),
	}
}

const transactionQueryCols = `
	id, owner_id, owner_name, renter_id, renter_name, item_id, item_name,
	start_date, end_date, price_per_day, total_days, total_price, deposit,
	status, owner_reviewed, renter_reviewed, created_at, completed_at
`

func (r *transactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, owner_id, owner_name, renter_id, renter_name, item_id, item_name,
			start_date, end_date, price_per_day, total_days, total_price, deposit,
			status, owner_reviewed, renter_reviewed, created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.db.pool.Exec(ctx, query,
		t.ID, t.OwnerID, t.OwnerName, t.RenterID, t.RenterName, t.ItemID, t.ItemName,
		t.StartDate, t.EndDate, t.PricePerDay, t.TotalDays, t.TotalPrice, t.Deposit,
		t.Status, t.OwnerReviewed, t.RenterReviewed, t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		r.log.Error().Err(err).Str("transaction_id", t.ID).Msg("Failed to insert transaction")
		return err
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionQueryCols + ` FROM transactions WHERE id = $1`

	var t domain.Transaction
	err := r.db.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.OwnerID, &t.OwnerName, &t.RenterID, &t.RenterName, &t.ItemID, &t.ItemName,
		&t.StartDate, &t.EndDate, &t.PricePerDay, &t.TotalDays, &t.TotalPrice, &t.Deposit,
		&t.Status, &t.OwnerReviewed, &t.RenterReviewed, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to scan transaction row")
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepository) Update(ctx context.Context, t *domain.Transaction) error {
	query := `
		UPDATE transactions SET
			status = $2, owner_reviewed = $3, renter_reviewed = $4, completed_at = $5
		WHERE id = $1
	`
	tag, err := r.db.pool.Exec(ctx, query,
		t.ID, t.Status, t.OwnerReviewed, t.RenterReviewed, t.CompletedAt)
	if err != nil {
		r.log.Error().Err(err).Str("transaction_id", t.ID).Msg("Failed to update transaction")
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
