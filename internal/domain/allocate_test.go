package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate_PrefersCurrentStockBatchesToShipments(t *testing.T) {
	inStock := NewBatch("in_stock_batch", "RETRO-CLOCK", 100, nil)
	shipment := NewBatch("shipment_batch", "RETRO-CLOCK", 100, Date(2022, time.May, 22))
	line := NewOrderLine("oref", "RETRO-CLOCK", 10)

	ref, err := Allocate(line, []*Batch{shipment, inStock})

	require.NoError(t, err)
	assert.Equal(t, "in_stock_batch", ref)
	assert.Equal(t, 90, inStock.AvailableQuantity())
	assert.Equal(t, 100, shipment.AvailableQuantity())
}

func TestAllocate_PrefersEarlierBatches(t *testing.T) {
	earliest := NewBatch("speedy-batch", "MINIMALIST-SPOON", 100, Date(2022, time.May, 1))
	medium := NewBatch("normal-batch", "MINIMALIST-SPOON", 100, Date(2022, time.May, 2))
	latest := NewBatch("slow-batch", "MINIMALIST-SPOON", 100, Date(2022, time.June, 1))
	line := NewOrderLine("order1", "MINIMALIST-SPOON", 10)

	ref, err := Allocate(line, []*Batch{medium, latest, earliest})

	require.NoError(t, err)
	assert.Equal(t, "speedy-batch", ref)
	assert.Equal(t, 90, earliest.AvailableQuantity())
	assert.Equal(t, 100, medium.AvailableQuantity())
	assert.Equal(t, 100, latest.AvailableQuantity())
}

func TestAllocate_SkipsPreferredBatchWithoutEnoughStock(t *testing.T) {
	inStock := NewBatch("in_stock_batch", "RETRO-CLOCK", 5, nil)
	shipment := NewBatch("shipment_batch", "RETRO-CLOCK", 100, Date(2022, time.May, 22))
	line := NewOrderLine("oref", "RETRO-CLOCK", 10)

	ref, err := Allocate(line, []*Batch{inStock, shipment})

	require.NoError(t, err)
	assert.Equal(t, "shipment_batch", ref)
	assert.Equal(t, 5, inStock.AvailableQuantity())
}

func TestAllocate_EqualRankKeepsInsertionOrder(t *testing.T) {
	first := NewBatch("first", "LAMP", 10, nil)
	second := NewBatch("second", "LAMP", 10, nil)

	ref, err := Allocate(NewOrderLine("o1", "LAMP", 1), []*Batch{first, second})

	require.NoError(t, err)
	assert.Equal(t, "first", ref)
}

func TestAllocate_DoesNotReorderCallerSlice(t *testing.T) {
	shipment := NewBatch("shipment_batch", "RETRO-CLOCK", 100, Date(2022, time.May, 22))
	inStock := NewBatch("in_stock_batch", "RETRO-CLOCK", 100, nil)
	batches := []*Batch{shipment, inStock}

	_, err := Allocate(NewOrderLine("oref", "RETRO-CLOCK", 10), batches)

	require.NoError(t, err)
	assert.Same(t, shipment, batches[0])
	assert.Same(t, inStock, batches[1])
}

func TestAllocate_ErrorWhenNoBatchesAvailable(t *testing.T) {
	inStock := NewBatch("in_stock_batch", "RETRO-CLOCK", 100, nil)
	shipment := NewBatch("shipment_batch", "RETRO-CLOCK", 100, Date(2022, time.May, 22))
	line := NewOrderLine("oref", "RETRO-CHAIR", 10)

	ref, err := Allocate(line, []*Batch{inStock, shipment})

	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Contains(t, err.Error(), "RETRO-CHAIR")
	assert.Empty(t, ref)
	assert.Equal(t, 100, inStock.AvailableQuantity())
	assert.Equal(t, 100, shipment.AvailableQuantity())
}

func TestAllocate_ErrorOnEmptyBatchList(t *testing.T) {
	_, err := Allocate(NewOrderLine("o1", "LAMP", 1), nil)
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestAllocate_RejectsNonPositiveQuantity(t *testing.T) {
	b := NewBatch("b1", "LAMP", 10, nil)

	_, err := Allocate(NewOrderLine("o1", "LAMP", -5), []*Batch{b})

	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 10, b.AvailableQuantity())
}
