package domain

import "time"

// TransactionStatus is a custom type for the rental deal ENUM.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionActive    TransactionStatus = "active"
	TransactionCompleted TransactionStatus = "completed"
	TransactionCancelled TransactionStatus = "cancelled"
	TransactionDisputed  TransactionStatus = "disputed"
)

// Transaction is a rental deal between an owner and a renter. The
// marketplace drives its lifecycle; this subsystem reads it to gate
// reviews and flips the per-side reviewed flags.
type Transaction struct {
	ID             string
	OwnerID        string
	OwnerName      string
	RenterID       string
	RenterName     string
	ItemID         string
	ItemName       string
	StartDate      time.Time
	EndDate        time.Time
	PricePerDay    float64
	TotalDays      int
	TotalPrice     float64
	Deposit        float64
	Status         TransactionStatus
	OwnerReviewed  bool
	RenterReviewed bool
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// Participant reports whether the user is a party to this deal.
func (t *Transaction) Participant(userID string) bool {
	return t.OwnerID == userID || t.RenterID == userID
}

// RoleOf returns the side the user played in this deal. The boolean is
// false when the user was not a participant.
func (t *Transaction) RoleOf(userID string) (ReviewRole, bool) {
	switch userID {
	case t.OwnerID:
		return RoleOwner, true
	case t.RenterID:
		return RoleRenter, true
	}
	return "", false
}
