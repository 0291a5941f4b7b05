// Package handlers turns Kafka messages into allocation service calls and
// publishes the outcome.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"allocationservice/internal/config"
	"allocationservice/internal/domain"
	"allocationservice/internal/platform/kafka"
	"allocationservice/internal/platform/observability"
	"allocationservice/internal/repository"
	"allocationservice/internal/service"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// etaLayout is the date format of BatchCreated ETAs.
const etaLayout = "2006-01-02"

// Out-of-stock reasons.
const (
	ReasonOutOfStock = "out_of_stock"
	ReasonUnknownSKU = "unknown_sku"
)

// MessageHandler defines the interface for processing incoming messages.
type MessageHandler interface {
	Handle(ctx context.Context, msg kafkago.Message) error
}

// KafkaMessageHandler dispatches BatchCreated and OrderCreated messages to
// the allocation service. Malformed messages are logged and dropped; only
// infrastructure failures are returned.
type KafkaMessageHandler struct {
	service  service.Service
	producer kafka.Producer
	logger   observability.Logger
	newID    func() string
}

// NewMessageHandler creates a new MessageHandler instance with explicit dependencies
func NewMessageHandler(svc service.Service, producer kafka.Producer, logger observability.Logger) *KafkaMessageHandler {
	return &KafkaMessageHandler{
		service:  svc,
		producer: producer,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

var _ MessageHandler = (*KafkaMessageHandler)(nil)

// Handle processes one message according to its topic.
func (h *KafkaMessageHandler) Handle(ctx context.Context, msg kafkago.Message) error {
	// Extract trace context to connect spans across services
	msgCtx := h.extractTraceContext(ctx, msg.Headers)

	h.logger.Info("📨 Raw Kafka message received",
		zap.String("topic", msg.Topic),
		zap.ByteString("key", msg.Key),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	switch msg.Topic {
	case config.BatchCreatedTopic:
		return h.handleBatchCreated(msgCtx, msg.Value)
	case config.OrderCreatedTopic:
		return h.handleOrderCreated(msgCtx, msg.Value)
	default:
		h.logger.Warn("⚠️ Message on unexpected topic dropped", zap.String("topic", msg.Topic))
		return nil
	}
}

func (h *KafkaMessageHandler) handleBatchCreated(ctx context.Context, value []byte) error {
	var event domain.BatchCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.Error("❌ Invalid JSON in BatchCreated event",
			zap.Error(err),
			zap.ByteString("raw_value", value),
		)
		return nil
	}

	batch, err := batchFromEvent(event)
	if err != nil {
		h.logger.Error("❌ Invalid BatchCreated event",
			zap.Error(err),
			zap.String("reference", event.Reference),
		)
		return nil
	}

	if err := h.service.AddBatch(ctx, batch); err != nil {
		if isDomainError(err) {
			h.logger.Warn("⚠️ BatchCreated event rejected",
				zap.Error(err),
				zap.String("reference", event.Reference),
			)
			return nil
		}
		h.logger.Error("❌ Failed to add batch", zap.Error(err), zap.String("reference", event.Reference))
		return err
	}
	return nil
}

func (h *KafkaMessageHandler) handleOrderCreated(ctx context.Context, value []byte) error {
	var order domain.OrderCreatedEvent
	if err := json.Unmarshal(value, &order); err != nil {
		h.logger.Error("❌ Invalid JSON in OrderCreated event",
			zap.Error(err),
			zap.ByteString("raw_value", value),
		)
		return nil
	}

	h.logger.Info("✅ Received OrderCreated event",
		zap.String("order_id", order.OrderID),
		zap.Int("lines", len(order.Lines)),
	)

	var errs error
	for _, item := range order.Lines {
		line := domain.NewOrderLine(order.OrderID, item.SKU, item.Qty)
		if err := line.Validate(); err != nil {
			h.logger.Error("❌ Invalid order line skipped",
				zap.Error(err),
				zap.String("order_id", order.OrderID),
				zap.String("sku", item.SKU),
				zap.Int("qty", item.Qty),
			)
			continue
		}
		errs = errors.Join(errs, h.allocateLine(ctx, line))
	}
	return errs
}

func (h *KafkaMessageHandler) allocateLine(ctx context.Context, line domain.OrderLine) error {
	ref, err := h.service.Allocate(ctx, line)
	if err == nil {
		return h.publish(ctx, config.AllocatedTopic, line.OrderID, domain.AllocatedEvent{
			EventID:  h.newID(),
			OrderID:  line.OrderID,
			SKU:      line.SKU,
			Qty:      line.Qty,
			BatchRef: ref,
		})
	}

	reason, ok := outOfStockReason(err)
	if !ok {
		h.logger.Error("❌ Failed to allocate order line",
			zap.Error(err),
			zap.String("order_id", line.OrderID),
			zap.String("sku", line.SKU),
		)
		return err
	}
	return h.publish(ctx, config.OutOfStockTopic, line.OrderID, domain.OutOfStockEvent{
		EventID: h.newID(),
		OrderID: line.OrderID,
		SKU:     line.SKU,
		Qty:     line.Qty,
		Reason:  reason,
	})
}

// extractTraceContext extracts OpenTelemetry trace context from Kafka message headers
func (h *KafkaMessageHandler) extractTraceContext(ctx context.Context, headers []kafkago.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[header.Key] = string(header.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func (h *KafkaMessageHandler) publish(ctx context.Context, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("❌ Failed to serialize event", zap.Error(err), zap.String("topic", topic))
		return err
	}

	msg := kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}
	if err := h.producer.WriteMessage(ctx, msg); err != nil {
		h.logger.Error("❌ Failed to publish event",
			zap.Error(err),
			zap.String("topic", topic),
			zap.String("order_id", key),
		)
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	h.logger.Info("📤 Sent event", zap.String("topic", topic), zap.String("order_id", key))
	return nil
}

func batchFromEvent(event domain.BatchCreatedEvent) (*domain.Batch, error) {
	if event.Reference == "" {
		return nil, errors.New("reference is required")
	}
	if event.SKU == "" {
		return nil, errors.New("sku is required")
	}
	if event.Qty < 0 {
		return nil, errors.New("quantity must not be negative")
	}
	var eta *time.Time
	if event.ETA != "" {
		t, err := time.Parse(etaLayout, event.ETA)
		if err != nil {
			return nil, fmt.Errorf("eta: %w", err)
		}
		eta = &t
	}
	return domain.NewBatch(event.Reference, event.SKU, event.Qty, eta), nil
}

func isDomainError(err error) bool {
	var svcErr *service.Error
	return errors.As(err, &svcErr) && svcErr.Origin == service.OriginDomain
}

// outOfStockReason reports whether the allocation failure should be
// published as OutOfStock rather than retried.
func outOfStockReason(err error) (string, bool) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, domain.ErrInvalidSku):
		return ReasonUnknownSKU, true
	case errors.Is(err, domain.ErrOutOfStock):
		return ReasonOutOfStock, true
	default:
		return "", false
	}
}
