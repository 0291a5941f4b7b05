// Package kafka declares the message transport used by the service. The
// otel-kafka-konsumer reader and writer satisfy these interfaces.
package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Producer publishes messages. Each message carries its own topic.
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// Consumer reads messages from the subscribed topics.
type Consumer interface {
	ReadMessage(ctx context.Context) (*kafka.Message, error)
	Close() error
}
