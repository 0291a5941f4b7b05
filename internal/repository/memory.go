package repository

import (
	"context"
	"fmt"
	"sync"

	"allocationservice/internal/domain"
)

// MemoryRepository keeps products in a map keyed by SKU.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

// NewMemoryRepository creates a repository seeded with the given products.
// A later product replaces an earlier one with the same SKU.
func NewMemoryRepository(products ...*domain.Product) *MemoryRepository {
	r := &MemoryRepository{products: make(map[string]*domain.Product, len(products))}
	for _, p := range products {
		r.products[p.SKU] = p.Clone()
	}
	return r
}

// NewMemoryRepositoryFromBatches groups loose batches into one product per
// SKU, keeping the batch order within each SKU.
func NewMemoryRepositoryFromBatches(batches ...*domain.Batch) (*MemoryRepository, error) {
	r := NewMemoryRepository()
	for _, b := range batches {
		p, ok := r.products[b.SKU]
		if !ok {
			p = &domain.Product{SKU: b.SKU}
			r.products[b.SKU] = p
		}
		if err := p.AppendBatch(b); err != nil {
			return nil, fmt.Errorf("seed batch %s: %w", b.Reference, err)
		}
	}
	return r, nil
}

// Write stores a new product.
func (r *MemoryRepository) Write(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[product.SKU]; exists {
		return fmt.Errorf("%w: %s", ErrKeyExists, product.SKU)
	}
	r.products[product.SKU] = product.Clone()
	return nil
}

// Update inserts or replaces the product for its SKU.
func (r *MemoryRepository) Update(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.products[product.SKU] = product.Clone()
	return nil
}

// Read returns a copy of the product for the SKU.
func (r *MemoryRepository) Read(ctx context.Context, sku string) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[sku]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sku)
	}
	return p.Clone(), nil
}

// Remove deletes the product for the SKU.
func (r *MemoryRepository) Remove(ctx context.Context, sku string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[sku]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sku)
	}
	delete(r.products, sku)
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
