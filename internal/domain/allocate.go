package domain

import (
	"fmt"
	"slices"
)

// Allocate picks the most preferred batch that can take the line, allocates
// the line to it and returns the batch reference. Batches of equal rank keep
// their relative order. The caller's slice is not reordered.
func Allocate(line OrderLine, batches []*Batch) (string, error) {
	if line.Qty <= 0 {
		return "", fmt.Errorf("%w: order %s qty %d", ErrInvalidQuantity, line.OrderID, line.Qty)
	}
	sorted := slices.Clone(batches)
	slices.SortStableFunc(sorted, ComparePreference)

	for _, b := range sorted {
		if b.CanAllocate(line) {
			b.Allocate(line)
			return b.Reference, nil
		}
	}
	return "", fmt.Errorf("%w: sku %s", ErrOutOfStock, line.SKU)
}
