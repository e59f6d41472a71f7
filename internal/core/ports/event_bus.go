package ports

import "context"

// Bus topics. The trust engine subscribes to both and recomputes the
// affected user's rating, trust score, and badges.
const (
	TopicVerificationPassed = "verification:passed"
	TopicReviewCreated      = "review:created"
)

// UserEvent is the payload for trust-recompute topics.
type UserEvent struct {
	UserID string
}

// Event is a generic wrapper for any event payload.
type Event struct {
	Topic string
	Data  interface{}
}

// EventHandler is a function that can handle a specific event.
type EventHandler func(ctx context.Context, event Event) error

// EventBus is the in-process pub/sub system connecting the verification
// flows and the review recorder to the trust engine.
type EventBus interface {
	// Publish sends an event to all subscribers of a topic.
	Publish(ctx context.Context, topic string, data interface{}) error

	// Subscribe registers a handler for a specific topic.
	Subscribe(topic string, handler EventHandler)
}
