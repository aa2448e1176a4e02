package model

import "time"

// Request statuses. A request is created as StatusPending and moves
// through the remaining values via explicit status-change operations.
// Any recognized status may follow any other; unrecognized values are
// rejected before reaching the store.
const (
	StatusPending   = "Pending"
	StatusRejected  = "Rejected"
	StatusApproved  = "Approved"
	StatusAssigned  = "Assigned"
	StatusCompleted = "Completed"
)

// ValidStatus reports whether s is one of the recognized request
// statuses. The comparison is exact; clients must send the canonical
// spelling.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusRejected, StatusApproved, StatusAssigned, StatusCompleted:
		return true
	}
	return false
}

// ServiceRequest mirrors the `service_requests` table. A request
// belongs to one customer and carries zero or more detail lines.
//
// Fields:
//  ID          – primary key identifier.
//  CustomerID  – owning customer.
//  Title       – short summary, never empty.
//  Description – free-form description.
//  Status      – one of the Status* constants.
//  CreatedBy   – user who opened the request.
//  CreatedAt   – creation timestamp.
//  ApprovedBy  – user who approved the request (nullable).
//  ApprovedAt  – when the request was approved (nullable).
type ServiceRequest struct {
	ID          uint64     // service_requests.id
	CustomerID  uint64     // service_requests.customer_id
	Title       string     // service_requests.title
	Description string     // service_requests.description
	Status      string     // service_requests.status
	CreatedBy   uint64     // service_requests.created_by
	CreatedAt   time.Time  // service_requests.created_at
	ApprovedBy  *uint64    // service_requests.approved_by (nullable)
	ApprovedAt  *time.Time // service_requests.approved_at (nullable)
}

// ServiceDetail mirrors the `service_details` table. One row per
// item or service sold while working a request. The line amount is
// derived (Quantity × UnitPrice) and never stored.
type ServiceDetail struct {
	ID        uint64    // service_details.id
	RequestID uint64    // service_details.request_id
	ItemName  string    // service_details.item_name
	Quantity  int       // service_details.quantity
	UnitPrice float64   // service_details.unit_price
	CreatedAt time.Time // service_details.created_at
}

// ServiceRecord mirrors the `services` table. It tracks completion
// of the field work associated with a request, separately from the
// request status itself. request_id is unique so completion is an
// upsert.
type ServiceRecord struct {
	ID          uint64     // services.id
	RequestID   uint64     // services.request_id
	Completed   bool       // services.completed
	CompletedAt *time.Time // services.completed_at (nullable)
	CompletedBy *uint64    // services.completed_by (nullable)
}
