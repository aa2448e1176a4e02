// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// ProductExpiringEvent is published by the expiry-notification sweep,
// one message per product whose expiry falls inside the notification
// window. It carries enough information for downstream consumers to
// notify the customer without querying the primary database.
type ProductExpiringEvent struct {
	ProductID     uint64 `json:"product_id"`
	CustomerID    uint64 `json:"customer_id"`
	CustomerTitle string `json:"customer_title,omitempty"`
	ProductName   string `json:"product_name"`
	ExpiresAt     string `json:"expires_at"`
	SweptAt       string `json:"swept_at"`
}
