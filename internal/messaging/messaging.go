package messaging

import "context"

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
// Consume blocks until ctx is cancelled.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error)
}

// Topics used between checkout and the staff service.
const (
	TopicOrdersPlaced = "orders.placed"
	TopicOrdersStatus = "orders.status"
)

// Discard drops every event. It stands in when no broker is configured.
type Discard struct{}

func (Discard) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	return nil
}
