// Package repository stores Product aggregates keyed by SKU.
package repository

import (
	"context"
	"errors"

	"allocationservice/internal/domain"
)

var (
	// ErrNotFound indicates no product is stored for the SKU.
	ErrNotFound = errors.New("product not found")
	// ErrKeyExists indicates a product is already stored for the SKU.
	ErrKeyExists = errors.New("product already exists")
)

// Repository persists one Product per SKU. Implementations store and return
// copies, so changes to a read product only take effect through Update.
type Repository interface {
	// Write stores a new product and fails with ErrKeyExists if the SKU is taken.
	Write(ctx context.Context, product *domain.Product) error
	// Update stores the product, replacing any previous one for the SKU.
	Update(ctx context.Context, product *domain.Product) error
	// Read returns the product for the SKU or ErrNotFound.
	Read(ctx context.Context, sku string) (*domain.Product, error)
	// Remove deletes the product for the SKU or returns ErrNotFound.
	Remove(ctx context.Context, sku string) error
}
