package domain

// BatchCreatedEvent announces new stock for a SKU. ETA is a YYYY-MM-DD
// date; empty means the batch is in stock.
type BatchCreatedEvent struct {
	Reference string `json:"reference"`
	SKU       string `json:"sku"`
	Qty       int    `json:"qty"`
	ETA       string `json:"eta,omitempty"`
}

// OrderCreatedEvent represents an order creation event from the order service
type OrderCreatedEvent struct {
	OrderID string          `json:"order_id"`
	Lines   []OrderLineItem `json:"lines"`
}

// OrderLineItem is one line of an OrderCreatedEvent.
type OrderLineItem struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

// AllocatedEvent reports the batch an order line was allocated to.
type AllocatedEvent struct {
	EventID  string `json:"event_id"`
	OrderID  string `json:"order_id"`
	SKU      string `json:"sku"`
	Qty      int    `json:"qty"`
	BatchRef string `json:"batch_ref"`
}

// OutOfStockEvent reports an order line that could not be allocated.
type OutOfStockEvent struct {
	EventID string `json:"event_id"`
	OrderID string `json:"order_id"`
	SKU     string `json:"sku"`
	Qty     int    `json:"qty"`
	Reason  string `json:"reason"`
}
