package app

import (
	"context"
	"fmt"

	"allocationservice/internal/config"
	"allocationservice/internal/platform/kafka"
	"allocationservice/internal/platform/observability"
	"allocationservice/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Container holds expensive-to-create singleton resources and dependencies
type Container struct {
	config          *config.Config
	logger          observability.Logger
	tracer          observability.Tracer
	meter           metric.Meter
	repository      repository.Repository
	closeRepository func() error
	messageConsumer kafka.Consumer
	messageProducer kafka.Producer
	otelShutdown    observability.ShutdownFunc
}

// NewContainer loads configuration from the environment and initializes all
// infrastructure components.
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewContainerWithConfig(ctx, cfg)
}

// NewContainerWithConfig initializes all infrastructure components from cfg.
func NewContainerWithConfig(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{config: cfg}

	// Start with basic logger
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	c.logger = logger

	if err := c.setupObservability(ctx); err != nil {
		c.Shutdown(ctx)
		return nil, err
	}
	if err := c.setupStorage(ctx); err != nil {
		c.Shutdown(ctx)
		return nil, err
	}
	return c, nil
}

// setupObservability installs the OpenTelemetry SDKs, then Kafka
func (c *Container) setupObservability(ctx context.Context) error {
	otelLogShutdown, err := observability.SetupLoggingSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry logging", zap.Error(err))
	}

	tp, otelTraceShutdown, err := observability.SetupTracingSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry tracing", zap.Error(err))
	}
	mp, otelMetricShutdown, err := observability.SetupMetricsSDK(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry metrics", zap.Error(err))
	}
	c.otelShutdown = observability.JoinShutdown(otelLogShutdown, otelTraceShutdown, otelMetricShutdown)

	// Re-initialize logger with OTel bridge
	c.logger = observability.NewLogger()
	c.logger.Info("Logger initialized with OpenTelemetry bridge",
		zap.Bool("otel_export", c.config.OtelEnabled()),
	)

	c.tracer = otel.Tracer(config.ServiceName)
	c.meter = mp.Meter(config.ServiceName)

	reader, err := newKafkaReader(c.config)
	if err != nil {
		return fmt.Errorf("kafka reader: %w", err)
	}
	c.messageConsumer = reader

	writer, err := newKafkaWriter(c.config, tp)
	if err != nil {
		return fmt.Errorf("kafka writer: %w", err)
	}
	c.messageProducer = writer
	return nil
}

func (c *Container) setupStorage(ctx context.Context) error {
	repo, closeRepo, err := openRepository(ctx, c.config)
	if err != nil {
		return err
	}
	c.repository = repo
	c.closeRepository = closeRepo
	c.logger.Info("Product repository ready", zap.String("driver", c.config.StorageDriver))
	return nil
}

// Shutdown gracefully shuts down all infrastructure components
func (c *Container) Shutdown(ctx context.Context) {
	c.logger.Info("Shutting down infrastructure...")

	if c.messageConsumer != nil {
		if err := c.messageConsumer.Close(); err != nil {
			c.logger.Error("Failed to close message consumer", zap.Error(err))
		}
	}

	if c.messageProducer != nil {
		if err := c.messageProducer.Close(); err != nil {
			c.logger.Error("Failed to close message producer", zap.Error(err))
		}
	}

	if c.closeRepository != nil {
		if err := c.closeRepository(); err != nil {
			c.logger.Error("Failed to close product repository", zap.Error(err))
		}
	}

	c.logger.Info("Infrastructure shutdown complete")

	if c.otelShutdown != nil {
		if err := c.otelShutdown(ctx); err != nil {
			c.logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}

	_ = c.logger.Sync()
}

// Getters for accessing infrastructure components
func (c *Container) Config() *config.Config            { return c.config }
func (c *Container) Logger() observability.Logger      { return c.logger }
func (c *Container) Meter() metric.Meter               { return c.meter }
func (c *Container) Tracer() observability.Tracer      { return c.tracer }
func (c *Container) Repository() repository.Repository { return c.repository }
func (c *Container) MessageConsumer() kafka.Consumer   { return c.messageConsumer }
func (c *Container) MessageProducer() kafka.Producer   { return c.messageProducer }
