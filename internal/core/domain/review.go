package domain

import "time"

// ReviewRole is the reviewee's side in the transaction being reviewed.
type ReviewRole string

const (
	RoleOwner  ReviewRole = "owner"
	RoleRenter ReviewRole = "renter"
)

// ReviewTag is a closed-vocabulary label attached to a review.
type ReviewTag string

const (
	TagFriendly     ReviewTag = "friendly"
	TagProfessional ReviewTag = "professional"
	TagResponsive   ReviewTag = "responsive"
	TagPunctual     ReviewTag = "punctual"
	TagClean        ReviewTag = "clean"
	TagCareful      ReviewTag = "careful"
	TagFlexible     ReviewTag = "flexible"
	TagRecommended  ReviewTag = "recommended"
	TagSlowResponse ReviewTag = "slow_response"
	TagLate         ReviewTag = "late"
	TagRude         ReviewTag = "rude"
	TagDamagedItem  ReviewTag = "damaged_item"
)

var allowedTags = map[ReviewTag]struct{}{
	TagFriendly: {}, TagProfessional: {}, TagResponsive: {}, TagPunctual: {},
	TagClean: {}, TagCareful: {}, TagFlexible: {}, TagRecommended: {},
	TagSlowResponse: {}, TagLate: {}, TagRude: {}, TagDamagedItem: {},
}

// ValidTag reports whether the tag belongs to the closed vocabulary.
func ValidTag(t ReviewTag) bool {
	_, ok := allowedTags[t]
	return ok
}

// DetailedRating holds optional 1-5 sub-scores; zero means not provided.
type DetailedRating struct {
	Communication int `json:"communication,omitempty"`
	Punctuality   int `json:"punctuality,omitempty"`
	ItemCondition int `json:"itemCondition,omitempty"` // rated for owners
	Carefulness   int `json:"carefulness,omitempty"`   // rated for renters
	Overall       int `json:"overall,omitempty"`
}

// ReviewResponse is the reviewee's one-time reply.
type ReviewResponse struct {
	Text        string    `json:"text"`
	RespondedAt time.Time `json:"respondedAt"`
}

// Review is one rating left after a completed transaction.
// Invariant: unique on (ReviewerID, TransactionID).
type Review struct {
	ID            string
	ReviewerID    string
	ReviewerName  string
	RevieweeID    string
	RevieweeName  string
	TransactionID string
	ItemID        string
	ItemName      string
	Role          ReviewRole
	Rating        int // 1-5
	Detailed      *DetailedRating
	Comment       string
	Tags          []ReviewTag
	IsPublic      bool
	Response      *ReviewResponse
	CreatedAt     time.Time
}

// TagCount is one entry of the most-used-tags breakdown.
type TagCount struct {
	Tag   ReviewTag `json:"tag"`
	Count int       `json:"count"`
}

// ReviewStatistics is the per-user review breakdown served alongside the
// rating: score distribution, top tags, and averaged detailed sub-scores.
type ReviewStatistics struct {
	Distribution map[int]int        `json:"distribution"`
	TopTags      []TagCount         `json:"topTags"`
	AvgDetailed  map[string]float64 `json:"avgDetailedRatings"`
}
