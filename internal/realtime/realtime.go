// Package realtime carries "something changed" notifications between staff
// sessions over watermill. Payloads are advisory; listeners re-fetch.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/limguytheboy/CasWebsiteFinal/internal/entity"
)

// DefaultTopic is the channel staff boards listen on.
const DefaultTopic = "prepared_inventory_changes"

// Feed publishes change notifications and lets boards subscribe to them.
type Feed struct {
	topic      string
	publisher  message.Publisher
	subscriber message.Subscriber
}

// NewFeed wraps an existing watermill publisher/subscriber pair.
func NewFeed(topic string, pub message.Publisher, sub message.Subscriber) *Feed {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Feed{topic: topic, publisher: pub, subscriber: sub}
}

// NewGoChannelFeed keeps notifications inside the process.
func NewGoChannelFeed(topic string, logger *slog.Logger) *Feed {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewSlogLogger(logger))
	return NewFeed(topic, pubSub, pubSub)
}

// NewKafkaFeed fans notifications out to every instance through Kafka.
// Each instance joins its own consumer group so all of them see every change.
func NewKafkaFeed(topic string, brokers []string, group string, logger *slog.Logger) (*Feed, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	pubCfg := kafka.DefaultSaramaSyncPublisherConfig()
	pubCfg.Producer.RequiredAcks = sarama.WaitForLocal
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: pubCfg,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create change publisher: %w", err)
	}

	subCfg := kafka.DefaultSaramaSubscriberConfig()
	subCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: subCfg,
		ConsumerGroup:         group + "-" + uuid.NewString(),
	}, wmLogger)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create change subscriber: %w", err)
	}

	return NewFeed(topic, publisher, subscriber), nil
}

// Notify publishes one change notification.
func (f *Feed) Notify(ctx context.Context, event entity.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("event_type", event.EventType())
	msg.SetContext(ctx)

	if err := f.publisher.Publish(f.topic, msg); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Listen calls onChange for every notification until ctx is cancelled.
// Failures are logged and the message is still acked: the next change
// or a manual refresh brings the listener back in sync.
func (f *Feed) Listen(ctx context.Context, onChange func(ctx context.Context, eventType string) error) error {
	messages, err := f.subscriber.Subscribe(ctx, f.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", f.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			eventType := msg.Metadata.Get("event_type")
			if err := onChange(ctx, eventType); err != nil {
				slog.Error("Change handler failed", "topic", f.topic, "event_type", eventType, "err", err)
			}
			msg.Ack()
		}
	}
}

func (f *Feed) Close() error {
	pubErr := f.publisher.Close()
	if f.subscriber != nil {
		if err := f.subscriber.Close(); err != nil {
			return err
		}
	}
	return pubErr
}
