package app

import (
	"context"
	"fmt"

	"allocationservice/internal/config"
	"allocationservice/internal/platform/kafka"
	"allocationservice/internal/repository"
	"allocationservice/internal/repository/sqlite"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// openRepository opens the configured product store. The returned close
// function releases it.
func openRepository(ctx context.Context, cfg *config.Config) (repository.Repository, func() error, error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, store.Close, nil
	case config.StorageMemory:
		return repository.NewMemoryRepository(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// newKafkaReader subscribes the consumer group to the inbound topics.
func newKafkaReader(cfg *config.Config) (kafka.Consumer, error) {
	baseReader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{cfg.KafkaBroker},
		GroupID:     cfg.KafkaGroupID,
		GroupTopics: []string{config.BatchCreatedTopic, config.OrderCreatedTopic},
	})
	return otelkafka.NewReader(baseReader)
}

// newKafkaWriter creates a writer without a fixed topic; every message names
// its own.
func newKafkaWriter(cfg *config.Config, tp trace.TracerProvider) (kafka.Producer, error) {
	baseWriter := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBroker),
		Balancer:               &kafkago.LeastBytes{},
		BatchTimeout:           config.BatchTimeout,
		BatchSize:              config.BatchSize,
		AllowAutoTopicCreation: true,
	}

	return otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				attribute.String("messaging.kafka.client_id", config.ServiceName),
			},
		),
	)
}
