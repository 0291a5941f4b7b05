package domain

import (
	"sort"
	"time"
)

// Batch is a quantity of stock for one SKU. A nil ETA means the stock is
// already in the warehouse.
type Batch struct {
	Reference string
	SKU       string
	ETA       *time.Time

	purchasedQty int
	allocations  map[OrderLine]struct{}
}

// NewBatch creates a batch with no allocations. The ETA, when given, is
// truncated to its calendar date in UTC.
func NewBatch(reference, sku string, qty int, eta *time.Time) *Batch {
	return &Batch{
		Reference:    reference,
		SKU:          sku,
		ETA:          dateOf(eta),
		purchasedQty: qty,
		allocations:  make(map[OrderLine]struct{}),
	}
}

// RestoreBatch rebuilds a stored batch with its allocations as they were
// saved, without re-checking available quantity.
func RestoreBatch(reference, sku string, qty int, eta *time.Time, allocations []OrderLine) *Batch {
	b := NewBatch(reference, sku, qty, eta)
	for _, line := range allocations {
		b.allocations[line] = struct{}{}
	}
	return b
}

// Date returns a pointer to the given calendar date, for use as a batch ETA.
func Date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func dateOf(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return Date(u.Year(), u.Month(), u.Day())
}

// Allocate reserves the line against this batch when CanAllocate allows it.
// Otherwise it does nothing.
func (b *Batch) Allocate(line OrderLine) {
	if b.CanAllocate(line) {
		b.allocations[line] = struct{}{}
	}
}

// Deallocate releases the line if it is allocated to this batch.
func (b *Batch) Deallocate(line OrderLine) {
	delete(b.allocations, line)
}

// CanAllocate reports whether the line matches the batch SKU and fits in the
// available quantity.
func (b *Batch) CanAllocate(line OrderLine) bool {
	return b.SKU == line.SKU && b.AvailableQuantity() >= line.Qty
}

// Holds reports whether the line is allocated to this batch.
func (b *Batch) Holds(line OrderLine) bool {
	_, ok := b.allocations[line]
	return ok
}

// PurchasedQuantity returns the quantity the batch was created with.
func (b *Batch) PurchasedQuantity() int {
	return b.purchasedQty
}

// AllocatedQuantity returns the sum of allocated line quantities.
func (b *Batch) AllocatedQuantity() int {
	total := 0
	for line := range b.allocations {
		total += line.Qty
	}
	return total
}

// AvailableQuantity returns the purchased quantity minus the allocated quantity.
func (b *Batch) AvailableQuantity() int {
	return b.purchasedQty - b.AllocatedQuantity()
}

// Allocations returns the allocated lines ordered by order id, sku and qty.
func (b *Batch) Allocations() []OrderLine {
	lines := make([]OrderLine, 0, len(b.allocations))
	for line := range b.allocations {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].OrderID != lines[j].OrderID {
			return lines[i].OrderID < lines[j].OrderID
		}
		if lines[i].SKU != lines[j].SKU {
			return lines[i].SKU < lines[j].SKU
		}
		return lines[i].Qty < lines[j].Qty
	})
	return lines
}

// Clone returns a deep copy of the batch.
func (b *Batch) Clone() *Batch {
	c := NewBatch(b.Reference, b.SKU, b.purchasedQty, b.ETA)
	for line := range b.allocations {
		c.allocations[line] = struct{}{}
	}
	return c
}

// ComparePreference ranks batches for allocation: in-stock batches first,
// then shipments by earliest ETA. It returns 0 for batches of equal rank,
// which says nothing about their identity.
func ComparePreference(a, b *Batch) int {
	switch {
	case a.ETA == nil && b.ETA == nil:
		return 0
	case a.ETA == nil:
		return -1
	case b.ETA == nil:
		return 1
	default:
		return a.ETA.Compare(*b.ETA)
	}
}
