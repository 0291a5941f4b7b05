package service

import (
	"context"
	"errors"

	"allocationservice/internal/domain"
	"allocationservice/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

// Allocation outcomes recorded on the allocation.lines counter.
const (
	OutcomeAllocated  = "allocated"
	OutcomeOutOfStock = "out_of_stock"
	OutcomeUnknownSKU = "unknown_sku"
	OutcomeHeld       = "already_allocated"
	OutcomeInvalid    = "invalid_line"
	OutcomeError      = "error"
)

type metrics struct {
	lines   metric.Int64Counter
	units   metric.Int64Counter
	batches metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	lines, err := meter.Int64Counter("allocation.lines",
		metric.WithDescription("Order lines processed by allocation outcome"),
		metric.WithUnit("{line}"))
	if err != nil {
		return nil, err
	}
	units, err := meter.Int64Counter("allocation.units",
		metric.WithDescription("Units in successfully allocated order lines"),
		metric.WithUnit("{unit}"))
	if err != nil {
		return nil, err
	}
	batches, err := meter.Int64Counter("allocation.batches_added",
		metric.WithDescription("Batches added to products"),
		metric.WithUnit("{batch}"))
	if err != nil {
		return nil, err
	}
	return &metrics{lines: lines, units: units, batches: batches}, nil
}

func noopMetrics() *metrics {
	m, _ := newMetrics(metricnoop.NewMeterProvider().Meter(""))
	return m
}

// recordAllocation counts one Allocate call. changed reports whether the
// call added the line to a batch; repeats of a held line add no units.
func (m *metrics) recordAllocation(ctx context.Context, line domain.OrderLine, changed bool, err error) {
	m.lines.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", allocationOutcome(changed, err))))
	if err == nil && changed {
		m.units.Add(ctx, int64(line.Qty))
	}
}

func allocationOutcome(changed bool, err error) string {
	switch {
	case err == nil && changed:
		return OutcomeAllocated
	case err == nil:
		return OutcomeHeld
	case errors.Is(err, domain.ErrInvalidQuantity):
		return OutcomeInvalid
	case errors.Is(err, domain.ErrOutOfStock):
		return OutcomeOutOfStock
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, domain.ErrInvalidSku):
		return OutcomeUnknownSKU
	default:
		return OutcomeError
	}
}
