package domain

import "errors"

// Domain errors returned by the Product aggregate.
var (
	// ErrInvalidSku indicates a line or batch does not belong to the product.
	ErrInvalidSku = errors.New("invalid sku")
	// ErrOutOfStock indicates no batch can satisfy an order line.
	ErrOutOfStock = errors.New("out of stock")
	// ErrInvalidQuantity indicates an order line with a quantity below one.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrDuplicateBatch indicates a batch reference is already part of the product.
	ErrDuplicateBatch = errors.New("duplicate batch reference")
)
