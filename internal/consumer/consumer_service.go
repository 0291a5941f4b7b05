// Package consumer runs the Kafka read loop.
package consumer

import (
	"context"
	"errors"

	"allocationservice/internal/handlers"
	"allocationservice/internal/platform/kafka"
	"allocationservice/internal/platform/observability"

	"go.uber.org/zap"
)

type ConsumerService interface {
	Start(ctx context.Context) error
}

type KafkaConsumerService struct {
	consumer       kafka.Consumer
	messageHandler handlers.MessageHandler
	logger         observability.Logger
}

func NewConsumerService(consumer kafka.Consumer, messageHandler handlers.MessageHandler, logger observability.Logger) *KafkaConsumerService {
	return &KafkaConsumerService{
		consumer:       consumer,
		messageHandler: messageHandler,
		logger:         logger,
	}
}

// Start reads messages until ctx is done. Read and handler errors are
// logged and the loop moves on to the next message.
func (c *KafkaConsumerService) Start(ctx context.Context) error {
	c.logger.Info("Kafka consumer started. Waiting for messages...")

	for {
		msg, err := c.consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("Context done, exiting Kafka read loop.", zap.Error(err))
				break
			}
			c.logger.Error("❌ Error reading from Kafka", zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if err := c.messageHandler.Handle(ctx, *msg); err != nil {
			c.logger.Error("❌ Failed to handle message",
				zap.Error(err),
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
			)
		}
	}

	c.logger.Info("Consumer service finished. Shutting down...")
	return nil
}
