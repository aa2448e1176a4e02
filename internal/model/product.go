package model

import "time"

// Product mirrors the `products` table: an item or service sold to a
// customer with an expiry date. Notified flips false→true at most
// once, when the expiry-notification sweep picks the product up.
type Product struct {
	ID          uint64    // products.id
	CustomerID  uint64    // products.customer_id
	Name        string    // products.name
	Description string    // products.description
	PurchasedAt time.Time // products.purchased_at
	ExpiresAt   time.Time // products.expires_at
	Cost        float64   // products.cost
	SalePrice   float64   // products.sale_price
	Notified    bool      // products.notified
	CreatedAt   time.Time // products.created_at
}
