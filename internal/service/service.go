// Package service runs the allocation use cases against a repository.
package service

import (
	"context"
	"errors"
	"sync"

	"allocationservice/internal/domain"
	"allocationservice/internal/platform/observability"
	"allocationservice/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Service defines the allocation use cases.
type Service interface {
	AddBatch(ctx context.Context, batch *domain.Batch) error
	Allocate(ctx context.Context, line domain.OrderLine) (string, error)
	Deallocate(ctx context.Context, line domain.OrderLine) (string, error)
}

// AllocationService implements Service. Operations on the same SKU are
// serialized; different SKUs proceed in parallel.
type AllocationService struct {
	repo   repository.Repository
	logger observability.Logger
	tracer observability.Tracer
	meter  metric.Meter

	metrics *metrics

	mu    sync.Mutex
	locks map[string]*skuLock
}

// skuLock is removed from the table once no operation holds or waits on it.
type skuLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures an AllocationService.
type Option func(*AllocationService)

// WithMeter records allocation counters on the given meter.
func WithMeter(meter metric.Meter) Option {
	return func(s *AllocationService) {
		s.meter = meter
	}
}

// NewService creates an allocation service with explicit dependencies.
func NewService(repo repository.Repository, logger observability.Logger, tracer observability.Tracer, opts ...Option) *AllocationService {
	s := &AllocationService{
		repo:    repo,
		logger:  logger,
		tracer:  tracer,
		metrics: noopMetrics(),
		locks:   make(map[string]*skuLock),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.meter != nil {
		m, err := newMetrics(s.meter)
		if err != nil {
			logger.Warn("⚠️ Allocation metrics disabled", zap.Error(err))
		} else {
			s.metrics = m
		}
	}
	return s
}

var _ Service = (*AllocationService)(nil)

// AddBatch adds the batch to its SKU's product, creating the product when
// the SKU is new.
func (s *AllocationService) AddBatch(ctx context.Context, batch *domain.Batch) (err error) {
	const op = "add_batch"

	ctx, span := s.tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("batch.reference", batch.Reference),
		attribute.String("batch.sku", batch.SKU),
		attribute.Int("batch.qty", batch.PurchasedQuantity()),
	)

	unlock := s.lock(batch.SKU)
	defer unlock()

	product, err := s.repo.Read(ctx, batch.SKU)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		product = &domain.Product{SKU: batch.SKU}
	case err != nil:
		return repositoryError(op, err)
	}

	if err := product.AppendBatch(batch); err != nil {
		s.logger.Warn("⚠️ Batch rejected",
			zap.String("reference", batch.Reference),
			zap.String("sku", batch.SKU),
			zap.Error(err),
		)
		return domainError(op, err)
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return repositoryError(op, err)
	}

	s.metrics.batches.Add(ctx, 1)
	s.logger.Info("📦 Batch added",
		zap.String("reference", batch.Reference),
		zap.String("sku", batch.SKU),
		zap.Int("qty", batch.PurchasedQuantity()),
		zap.Int("batches", len(product.Batches())),
	)
	return nil
}

// Allocate allocates the order line and returns the chosen batch reference.
func (s *AllocationService) Allocate(ctx context.Context, line domain.OrderLine) (ref string, err error) {
	const op = "allocate"

	changed := false
	ctx, span := s.tracer.Start(ctx, op)
	defer func() {
		s.metrics.recordAllocation(ctx, line, changed, err)
		endSpan(span, err)
	}()
	span.SetAttributes(lineAttributes(line)...)

	unlock := s.lock(line.SKU)
	defer unlock()

	product, err := s.repo.Read(ctx, line.SKU)
	if err != nil {
		return "", repositoryError(op, err)
	}

	version := product.Version
	ref, err = product.Allocate(line)
	if err != nil {
		s.logger.Warn("⚠️ Allocation failed",
			zap.String("order_id", line.OrderID),
			zap.String("sku", line.SKU),
			zap.Int("qty", line.Qty),
			zap.Error(err),
		)
		return "", domainError(op, err)
	}
	span.SetAttributes(attribute.String("allocation.batch_ref", ref))

	if product.Version == version {
		s.logger.Info("Order line already allocated",
			zap.String("order_id", line.OrderID),
			zap.String("sku", line.SKU),
			zap.String("batch_ref", ref),
		)
		return ref, nil
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return "", repositoryError(op, err)
	}
	changed = true

	s.logger.Info("✅ Order line allocated",
		zap.String("order_id", line.OrderID),
		zap.String("sku", line.SKU),
		zap.Int("qty", line.Qty),
		zap.String("batch_ref", ref),
	)
	return ref, nil
}

// Deallocate releases the order line and returns the batch it was taken
// from. A line that no batch holds returns an empty reference.
func (s *AllocationService) Deallocate(ctx context.Context, line domain.OrderLine) (ref string, err error) {
	const op = "deallocate"

	ctx, span := s.tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()
	span.SetAttributes(lineAttributes(line)...)

	unlock := s.lock(line.SKU)
	defer unlock()

	product, err := s.repo.Read(ctx, line.SKU)
	if err != nil {
		return "", repositoryError(op, err)
	}

	ref, ok := product.Deallocate(line)
	if !ok {
		s.logger.Info("Order line not allocated, nothing to release",
			zap.String("order_id", line.OrderID),
			zap.String("sku", line.SKU),
		)
		return "", nil
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return "", repositoryError(op, err)
	}

	s.logger.Info("↩️ Order line deallocated",
		zap.String("order_id", line.OrderID),
		zap.String("sku", line.SKU),
		zap.String("batch_ref", ref),
	)
	return ref, nil
}

func (s *AllocationService) lock(sku string) func() {
	s.mu.Lock()
	l, ok := s.locks[sku]
	if !ok {
		l = &skuLock{}
		s.locks[sku] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sku)
		}
		s.mu.Unlock()
	}
}

func lineAttributes(line domain.OrderLine) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("order.id", line.OrderID),
		attribute.String("order.sku", line.SKU),
		attribute.Int("order.qty", line.Qty),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
