package ports

import (
	"context"
	"time"

	"trust-service/internal/core/domain"
)

// Repositories are interface-driven so flows stay testable and the Postgres
// and in-memory implementations can be swapped without rewiring business
// code. Not-found lookups return domain.ErrNotFound; uniqueness violations
// return domain.ErrConflict.

// UserRepository persists the shared user record.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// SMSVerificationRepository persists one-time code records.
type SMSVerificationRepository interface {
	// Create fails with domain.ErrConflict when a pending, unexpired record
	// already exists for the user; the store is the uniqueness authority.
	Create(ctx context.Context, v *domain.SMSVerification) error
	GetByID(ctx context.Context, id string) (*domain.SMSVerification, error)
	// GetPending returns the record only while it is pending and owned by
	// the given user.
	GetPending(ctx context.Context, id, userID string) (*domain.SMSVerification, error)
	FindActiveByUser(ctx context.Context, userID string, now time.Time) (*domain.SMSVerification, error)
	Update(ctx context.Context, v *domain.SMSVerification) error
	// DeleteExpiredBefore removes records whose expiry is older than the
	// cutoff, regardless of status. Returns the number removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// LivenessRepository persists liveness sessions.
type LivenessRepository interface {
	Create(ctx context.Context, c *domain.LivenessCheck) error
	GetByID(ctx context.Context, sessionID string) (*domain.LivenessCheck, error)
	Update(ctx context.Context, c *domain.LivenessCheck) error
	// FindLatestPassed returns the user's most recent passed session.
	FindLatestPassed(ctx context.Context, userID string) (*domain.LivenessCheck, error)
	// ListVideoPurgeDue returns sessions whose raw video is past its
	// retention deadline and still referenced.
	ListVideoPurgeDue(ctx context.Context, now time.Time, limit int) ([]*domain.LivenessCheck, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// IDVerificationRepository persists document submissions.
type IDVerificationRepository interface {
	Create(ctx context.Context, v *domain.IDVerification) error
	GetByID(ctx context.Context, id string) (*domain.IDVerification, error)
	Update(ctx context.Context, v *domain.IDVerification) error
	// ListExpired returns records past their retention deadline so the
	// sweeper can drop their blobs before deleting them.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.IDVerification, error)
	Delete(ctx context.Context, id string) error
}

// ReviewRepository persists reviews.
type ReviewRepository interface {
	// Create fails with domain.ErrConflict when the (reviewer, transaction)
	// pair already has a review.
	Create(ctx context.Context, r *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	Update(ctx context.Context, r *domain.Review) error
	FindByReviewerAndTransaction(ctx context.Context, reviewerID, transactionID string) (*domain.Review, error)
	// ListPublicByReviewee returns public reviews about a user, newest
	// first, plus the total match count. Role filters to one side when
	// non-empty; limit <= 0 returns everything.
	ListPublicByReviewee(ctx context.Context, revieweeID string, role domain.ReviewRole, offset, limit int) ([]*domain.Review, int, error)
}

// TransactionRepository persists rental deals.
type TransactionRepository interface {
	Create(ctx context.Context, t *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	Update(ctx context.Context, t *domain.Transaction) error
}
