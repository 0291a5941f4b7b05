package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"allocationservice/internal/config"
	"allocationservice/internal/domain"
	"allocationservice/internal/repository"
	"allocationservice/internal/service"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

type fakeProducer struct {
	mu       sync.Mutex
	messages []kafkago.Message
	err      error
}

func (p *fakeProducer) WriteMessage(_ context.Context, msg kafkago.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

type harness struct {
	repo     *repository.MemoryRepository
	producer *fakeProducer
	handler  *KafkaMessageHandler
}

func newHarness(t *testing.T, batches ...*domain.Batch) *harness {
	t.Helper()
	repo, err := repository.NewMemoryRepositoryFromBatches(batches...)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	svc := service.NewService(repo, logger, noop.NewTracerProvider().Tracer("test"))
	producer := &fakeProducer{}
	handler := NewMessageHandler(svc, producer, logger)
	handler.newID = func() string { return "event-1" }

	return &harness{repo: repo, producer: producer, handler: handler}
}

func message(t *testing.T, topic string, payload any) kafkago.Message {
	t.Helper()
	value, err := json.Marshal(payload)
	require.NoError(t, err)
	return kafkago.Message{Topic: topic, Value: value}
}

func TestHandle_BatchCreatedAddsBatch(t *testing.T) {
	h := newHarness(t)

	err := h.handler.Handle(context.Background(), message(t, config.BatchCreatedTopic, domain.BatchCreatedEvent{
		Reference: "b1", SKU: "RETRO-CLOCK", Qty: 100, ETA: "2022-05-22",
	}))

	require.NoError(t, err)
	product, err := h.repo.Read(context.Background(), "RETRO-CLOCK")
	require.NoError(t, err)
	b, ok := product.Batch("b1")
	require.True(t, ok)
	assert.Equal(t, domain.Date(2022, 5, 22), b.ETA)
	assert.Equal(t, 100, b.AvailableQuantity())
	assert.Empty(t, h.producer.messages)
}

func TestHandle_BatchCreatedInvalidPayloadsAreSkipped(t *testing.T) {
	h := newHarness(t, domain.NewBatch("b1", "RETRO-CLOCK", 10, nil))

	tests := []struct {
		name  string
		value []byte
	}{
		{"malformed json", []byte("{not json")},
		{"bad eta", mustJSON(t, domain.BatchCreatedEvent{Reference: "b2", SKU: "RETRO-CLOCK", Qty: 1, ETA: "22/05/2022"})},
		{"missing reference", mustJSON(t, domain.BatchCreatedEvent{SKU: "RETRO-CLOCK", Qty: 1})},
		{"duplicate reference", mustJSON(t, domain.BatchCreatedEvent{Reference: "b1", SKU: "RETRO-CLOCK", Qty: 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.handler.Handle(context.Background(), kafkago.Message{Topic: config.BatchCreatedTopic, Value: tt.value})
			assert.NoError(t, err)
		})
	}

	product, err := h.repo.Read(context.Background(), "RETRO-CLOCK")
	require.NoError(t, err)
	assert.Len(t, product.Batches(), 1)
}

func TestHandle_OrderCreatedPublishesAllocated(t *testing.T) {
	h := newHarness(t,
		domain.NewBatch("in-stock-batch", "RETRO-CLOCK", 100, nil),
		domain.NewBatch("shipment-batch", "RETRO-CLOCK", 100, domain.Date(2022, 5, 22)),
	)

	err := h.handler.Handle(context.Background(), message(t, config.OrderCreatedTopic, domain.OrderCreatedEvent{
		OrderID: "o1",
		Lines:   []domain.OrderLineItem{{SKU: "RETRO-CLOCK", Qty: 10}},
	}))

	require.NoError(t, err)
	require.Len(t, h.producer.messages, 1)
	msg := h.producer.messages[0]
	assert.Equal(t, config.AllocatedTopic, msg.Topic)
	assert.Equal(t, "o1", string(msg.Key))

	var event domain.AllocatedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, domain.AllocatedEvent{
		EventID: "event-1", OrderID: "o1", SKU: "RETRO-CLOCK", Qty: 10, BatchRef: "in-stock-batch",
	}, event)
}

func TestHandle_OrderCreatedPublishesOutOfStock(t *testing.T) {
	h := newHarness(t, domain.NewBatch("b1", "RETRO-CLOCK", 5, nil))

	err := h.handler.Handle(context.Background(), message(t, config.OrderCreatedTopic, domain.OrderCreatedEvent{
		OrderID: "o1",
		Lines: []domain.OrderLineItem{
			{SKU: "RETRO-CLOCK", Qty: 10},
			{SKU: "UNKNOWN", Qty: 1},
			{SKU: "RETRO-CLOCK", Qty: 0},
		},
	}))

	require.NoError(t, err)
	require.Len(t, h.producer.messages, 2)

	reasons := make([]string, 0, 2)
	for _, msg := range h.producer.messages {
		assert.Equal(t, config.OutOfStockTopic, msg.Topic)
		var event domain.OutOfStockEvent
		require.NoError(t, json.Unmarshal(msg.Value, &event))
		reasons = append(reasons, event.Reason)
	}
	assert.Equal(t, []string{ReasonOutOfStock, ReasonUnknownSKU}, reasons)
}

func TestHandle_OrderCreatedMalformedJSONIsSkipped(t *testing.T) {
	h := newHarness(t)

	err := h.handler.Handle(context.Background(), kafkago.Message{Topic: config.OrderCreatedTopic, Value: []byte("[]")})

	assert.NoError(t, err)
	assert.Empty(t, h.producer.messages)
}

func TestHandle_PublishFailureIsReturned(t *testing.T) {
	h := newHarness(t, domain.NewBatch("b1", "RETRO-CLOCK", 100, nil))
	errBroker := errors.New("broker unavailable")
	h.producer.err = errBroker

	err := h.handler.Handle(context.Background(), message(t, config.OrderCreatedTopic, domain.OrderCreatedEvent{
		OrderID: "o1",
		Lines:   []domain.OrderLineItem{{SKU: "RETRO-CLOCK", Qty: 1}},
	}))

	assert.ErrorIs(t, err, errBroker)
}

func TestHandle_UnexpectedTopicIsIgnored(t *testing.T) {
	h := newHarness(t)

	err := h.handler.Handle(context.Background(), kafkago.Message{Topic: "Shipped", Value: []byte("{}")})

	assert.NoError(t, err)
	assert.Empty(t, h.producer.messages)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
