package broker

import (
	"context"

	"github.com/medeiros-dev/notification-gateway/internal/domain"
	"github.com/segmentio/kafka-go"
)

// Message is one record-created activation delivered by the broker.
type Message interface {
	// Data returns the created notification record.
	Data() domain.NotificationRecord
	// Ack commits the activation. The fan-out handler never fails an activation,
	// so every decoded message is acknowledged exactly once.
	Ack(ctx context.Context) error
	// MoveToDLQ parks a message that could not be handled at all (panic, poison pill).
	MoveToDLQ(ctx context.Context, processingError error) error
	// Headers returns the message headers (e.g., for trace propagation).
	Headers() []kafka.Header
}

// MessageBroker is the record-created trigger transport.
type MessageBroker interface {
	// Consume blocks, passing every decoded message to consumeFunc until ctx is cancelled.
	Consume(ctx context.Context, consumeFunc func(ctx context.Context, msg Message) error) error
	Close() error
}
