package domain

import "time"

// SMSStatus is a custom type for the SMS verification ENUM.
type SMSStatus string

const (
	SMSPending  SMSStatus = "pending"
	SMSVerified SMSStatus = "verified"
	SMSExpired  SMSStatus = "expired"
	SMSFailed   SMSStatus = "failed"
)

const (
	// SMSCodeTTL is how long an issued code stays valid.
	SMSCodeTTL = 5 * time.Minute

	// SMSMaxAttempts is the per-code comparison budget.
	SMSMaxAttempts = 3
)

// SMSVerification is one issued one-time code. Only the argon2id hash of the
// code is persisted. At most one pending, unexpired record may exist per
// user; the store enforces that, not the caller.
type SMSVerification struct {
	ID                string
	UserID            string
	Phone             string // stored encrypted
	CodeHash          string
	Status            SMSStatus
	Attempts          int
	MaxAttempts       int
	Provider          string
	ProviderMessageID string
	IPAddress         string
	SentAt            time.Time
	ExpiresAt         time.Time
	VerifiedAt        *time.Time
}

// Expired reports whether the code is past its validity window.
func (v *SMSVerification) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// Active reports whether the record still accepts verification attempts.
func (v *SMSVerification) Active(now time.Time) bool {
	return v.Status == SMSPending && !v.Expired(now)
}
