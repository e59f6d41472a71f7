package domain

import "time"

// BadgeType is a custom type for the badge ENUM.
type BadgeType string

const (
	BadgePhoneVerified    BadgeType = "phone_verified"
	BadgeLivenessVerified BadgeType = "liveness_verified"
	BadgeIDVerified       BadgeType = "id_verified"
	BadgeTrustedOwner     BadgeType = "trusted_owner"
	BadgeTrustedRenter    BadgeType = "trusted_renter"
	BadgeSuperhero        BadgeType = "superhero"
	BadgeNewUser          BadgeType = "new_user"
)

// Badge is a named, one-time-earned achievement attached to a user.
type Badge struct {
	Type     BadgeType `json:"type"`
	EarnedAt time.Time `json:"earnedAt"`
}

// Verification holds the per-user identity check flags. All three flags are
// one-way: once set they are never cleared, which keeps Level monotonic.
type Verification struct {
	PhoneVerified      bool         `json:"phoneVerified"`
	PhoneVerifiedAt    *time.Time   `json:"phoneVerifiedAt,omitempty"`
	LivenessVerified   bool         `json:"livenessVerified"`
	LivenessVerifiedAt *time.Time   `json:"livenessVerifiedAt,omitempty"`
	LivenessScore      float64      `json:"livenessScore,omitempty"`
	IDVerified         bool         `json:"idVerified"`
	IDVerifiedAt       *time.Time   `json:"idVerifiedAt,omitempty"`
	IDType             DocumentType `json:"idType,omitempty"`
	IsFullyVerified    bool         `json:"isFullyVerified"`
	Level              int          `json:"verificationLevel"` // 0-3, derived from the three flags
}

// RoleRating is an average/count pair scoped to one side of a deal.
type RoleRating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Rating aggregates public reviews about a user.
type Rating struct {
	Average  float64    `json:"average"`
	Count    int        `json:"count"`
	AsOwner  RoleRating `json:"asOwner"`
	AsRenter RoleRating `json:"asRenter"`
}

// Stats tracks transaction history, maintained by the marketplace side.
type Stats struct {
	TotalTransactions     int     `json:"totalTransactions"`
	CompletedTransactions int     `json:"completedTransactions"`
	CancelledTransactions int     `json:"cancelledTransactions"`
	TotalEarned           float64 `json:"totalEarned"`
	TotalSpent            float64 `json:"totalSpent"`
}

// User is the shared record all verification flows and the trust engine
// update. Each flow only touches its own field group, so there is no
// cross-flow write overlap.
type User struct {
	ID           string
	Phone        string // stored encrypted
	Email        string
	Name         string
	PasswordHash string
	Verification Verification
	Rating       Rating
	TrustScore   int // 0-100
	Badges       []Badge
	Stats        Stats
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DeriveLevel computes the verification level from the three flags:
// 1 requires a verified phone, 2 adds liveness, 3 adds an approved ID.
// Flows never write absolute levels; this is the single source of truth.
func DeriveLevel(v Verification) int {
	switch {
	case v.PhoneVerified && v.LivenessVerified && v.IDVerified:
		return 3
	case v.PhoneVerified && v.LivenessVerified:
		return 2
	case v.PhoneVerified:
		return 1
	default:
		return 0
	}
}

// applyDerived refreshes Level and IsFullyVerified after a flag flip.
// Level never goes down, even for stored records that predate the ladder.
func (u *User) applyDerived() {
	if lvl := DeriveLevel(u.Verification); lvl > u.Verification.Level {
		u.Verification.Level = lvl
	}
	u.Verification.IsFullyVerified = u.Verification.PhoneVerified &&
		u.Verification.LivenessVerified &&
		u.Verification.IDVerified
}

// MarkPhoneVerified records a successful SMS verification.
func (u *User) MarkPhoneVerified(at time.Time) {
	u.Verification.PhoneVerified = true
	u.Verification.PhoneVerifiedAt = &at
	u.applyDerived()
}

// MarkLivenessVerified records a passed liveness session and its score.
func (u *User) MarkLivenessVerified(score float64, at time.Time) {
	u.Verification.LivenessVerified = true
	u.Verification.LivenessVerifiedAt = &at
	u.Verification.LivenessScore = score
	u.applyDerived()
}

// MarkIDVerified records an approved document verification.
func (u *User) MarkIDVerified(docType DocumentType, at time.Time) {
	u.Verification.IDVerified = true
	u.Verification.IDVerifiedAt = &at
	u.Verification.IDType = docType
	u.applyDerived()
}

// HasBadge reports whether the user already earned a badge of this type.
func (u *User) HasBadge(t BadgeType) bool {
	for _, b := range u.Badges {
		if b.Type == t {
			return true
		}
	}
	return false
}

// AwardBadge appends a badge unless the type was already earned.
// Returns true when a new badge was added.
func (u *User) AwardBadge(t BadgeType, at time.Time) bool {
	if u.HasBadge(t) {
		return false
	}
	u.Badges = append(u.Badges, Badge{Type: t, EarnedAt: at})
	return true
}
