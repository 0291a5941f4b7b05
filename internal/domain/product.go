package domain

import "fmt"

// Product is the aggregate for every batch of one SKU. All allocation goes
// through it so the repository can store and lock per SKU.
type Product struct {
	SKU string
	// Version counts allocation changes.
	Version int

	batches []*Batch
}

// NewProduct creates a product from an initial batch list. Batches of a
// different SKU are rejected.
func NewProduct(sku string, batches ...*Batch) (*Product, error) {
	p := &Product{SKU: sku}
	for _, b := range batches {
		if err := p.AppendBatch(b); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Batches returns copies of the product's batches in insertion order.
// Changes to them do not affect the product.
func (p *Product) Batches() []*Batch {
	out := make([]*Batch, 0, len(p.batches))
	for _, b := range p.batches {
		out = append(out, b.Clone())
	}
	return out
}

// Batch returns a copy of the batch with the given reference.
func (p *Product) Batch(reference string) (*Batch, bool) {
	b, ok := p.find(reference)
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// AppendBatch adds a copy of a batch of this product's SKU.
func (p *Product) AppendBatch(b *Batch) error {
	if b.SKU != p.SKU {
		return fmt.Errorf("%w: batch %s has sku %s, product is %s", ErrInvalidSku, b.Reference, b.SKU, p.SKU)
	}
	if _, exists := p.find(b.Reference); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBatch, b.Reference)
	}
	p.batches = append(p.batches, b.Clone())
	return nil
}

// Allocate allocates the line to one of the product's batches and returns
// the batch reference. A line that is already allocated keeps its batch.
func (p *Product) Allocate(line OrderLine) (string, error) {
	if line.SKU != p.SKU {
		return "", fmt.Errorf("%w: line sku %s, product is %s", ErrInvalidSku, line.SKU, p.SKU)
	}
	if line.Qty <= 0 {
		return "", fmt.Errorf("%w: order %s qty %d", ErrInvalidQuantity, line.OrderID, line.Qty)
	}
	if ref, ok := p.holder(line); ok {
		return ref, nil
	}

	ref, err := Allocate(line, p.batches)
	if err != nil {
		return "", err
	}
	p.Version++
	return ref, nil
}

// Deallocate releases the line from the batch holding it and returns that
// batch reference. It reports false when no batch holds the line.
func (p *Product) Deallocate(line OrderLine) (string, bool) {
	ref, ok := p.holder(line)
	if !ok {
		return "", false
	}
	b, _ := p.find(ref)
	b.Deallocate(line)
	p.Version++
	return ref, true
}

// AvailableQuantity returns the available quantity summed over all batches.
func (p *Product) AvailableQuantity() int {
	total := 0
	for _, b := range p.batches {
		total += b.AvailableQuantity()
	}
	return total
}

// Clone returns a deep copy of the product and its batches.
func (p *Product) Clone() *Product {
	c := &Product{SKU: p.SKU, Version: p.Version, batches: make([]*Batch, 0, len(p.batches))}
	for _, b := range p.batches {
		c.batches = append(c.batches, b.Clone())
	}
	return c
}

func (p *Product) find(reference string) (*Batch, bool) {
	for _, b := range p.batches {
		if b.Reference == reference {
			return b, true
		}
	}
	return nil, false
}

func (p *Product) holder(line OrderLine) (string, bool) {
	for _, b := range p.batches {
		if b.Holds(line) {
			return b.Reference, true
		}
	}
	return "", false
}
