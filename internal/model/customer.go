package model

import "time"

// Customer mirrors the `customers` table. Customers own service
// requests, package subscriptions and purchased products. Inactive
// customers are kept for history but cannot receive new requests.
//
// Fields:
//  ID        – primary key identifier.
//  Title     – company or contact title.
//  Email     – contact e-mail (optional).
//  Phone     – contact phone (optional).
//  IsActive  – whether new requests may be opened for the customer.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Customer struct {
	ID        uint64    // customers.id
	Title     string    // customers.title
	Email     *string   // customers.email (nullable)
	Phone     *string   // customers.phone (nullable)
	IsActive  bool      // customers.is_active
	CreatedAt time.Time // customers.created_at
	UpdatedAt time.Time // customers.updated_at
}
