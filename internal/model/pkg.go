package model

import "time"

// Package mirrors the `packages` table: an admin-managed definition
// of a purchasable service bundle. Deactivation is a soft delete;
// subscriptions referencing a deactivated package keep working.
type Package struct {
	ID             uint64    // packages.id
	Name           string    // packages.name
	CallQuota      int       // packages.call_quota
	Price          float64   // packages.price
	DurationMonths int       // packages.duration_months
	Description    string    // packages.description
	IsActive       bool      // packages.is_active
	CreatedAt      time.Time // packages.created_at
}

// CustomerPackage mirrors the `customer_packages` table. It links a
// customer to a package instance with a remaining-call counter. The
// counter starts at the package quota and is only ever decremented by
// the service-detail workflow, guarded by a remaining_calls > 0
// predicate so it can never go negative.
type CustomerPackage struct {
	ID             uint64    // customer_packages.id
	CustomerID     uint64    // customer_packages.customer_id
	PackageID      uint64    // customer_packages.package_id
	RemainingCalls int       // customer_packages.remaining_calls
	CreatedAt      time.Time // customer_packages.created_at
}

// UsageHistory mirrors the `package_usage_history` table: an
// append-only audit trail with one row per successful call deduction,
// referencing the exact detail line that consumed the call.
type UsageHistory struct {
	ID          uint64    // package_usage_history.id
	CustomerID  uint64    // package_usage_history.customer_id
	RequestID   uint64    // package_usage_history.request_id
	DetailID    uint64    // package_usage_history.detail_id
	Description string    // package_usage_history.description
	CreatedAt   time.Time // package_usage_history.created_at
}
