package domain

import "errors"

// OrderLine is a request to allocate a quantity of one SKU.
// It is comparable, so two lines are equal when all fields match.
type OrderLine struct {
	OrderID string `json:"order_id"`
	SKU     string `json:"sku"`
	Qty     int    `json:"qty"`
}

// NewOrderLine creates an order line.
func NewOrderLine(orderID, sku string, qty int) OrderLine {
	return OrderLine{OrderID: orderID, SKU: sku, Qty: qty}
}

// Validate reports whether the line can be submitted for allocation.
func (l OrderLine) Validate() error {
	if l.OrderID == "" {
		return errors.New("order id is required")
	}
	if l.SKU == "" {
		return errors.New("sku is required")
	}
	if l.Qty <= 0 {
		return errors.New("quantity must be positive")
	}
	return nil
}
