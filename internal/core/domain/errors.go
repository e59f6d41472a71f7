package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across flows. Stores return ErrNotFound/ErrConflict
// (optionally wrapped); services translate provider and policy failures into
// the rest so transports can map them to responses without string matching.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")

	// SMS flow
	ErrInvalidPhoneFormat = errors.New("invalid phone number format")
	ErrRateLimited        = errors.New("sms send limit exceeded")
	ErrCodeAlreadyActive  = errors.New("an active code already exists")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrAttemptsExhausted  = errors.New("verification attempts exhausted")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrSMSProviderFailure = errors.New("sms provider failure")

	// Media submissions
	ErrPayloadTooLarge         = errors.New("payload too large")
	ErrUnsupportedFormat       = errors.New("unsupported media format")
	ErrUnsupportedDocumentType = errors.New("unsupported document type")
	ErrStorageFailure          = errors.New("blob storage failure")
	ErrAlreadyProcessing       = errors.New("analysis already in progress")

	// Reviews
	ErrMissingFields           = errors.New("required fields missing")
	ErrInvalidRating           = errors.New("rating must be between 1 and 5")
	ErrInvalidTag              = errors.New("unknown review tag")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrTransactionNotCompleted = errors.New("transaction is not completed")
	ErrNotAParticipant         = errors.New("reviewer did not take part in this transaction")
	ErrDuplicateReview         = errors.New("review for this transaction already exists")
	ErrNotReviewee             = errors.New("only the reviewee may respond")
	ErrResponseExists          = errors.New("response already exists")
)

// CodeActiveError reports the expiry of the code that blocks a new send.
type CodeActiveError struct {
	ExpiresAt time.Time
}

func (e *CodeActiveError) Error() string {
	return fmt.Sprintf("an active code already exists, expires at %s", e.ExpiresAt.Format(time.RFC3339))
}

func (e *CodeActiveError) Unwrap() error { return ErrCodeAlreadyActive }

// InvalidCodeError carries the remaining attempt budget.
type InvalidCodeError struct {
	AttemptsLeft int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid verification code, %d attempt(s) left", e.AttemptsLeft)
}

func (e *InvalidCodeError) Unwrap() error { return ErrInvalidCode }
