package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/serviceops/backoffice/internal/model"
)

// PackageRepo provides access to the `packages`, `customer_packages`
// and `package_usage_history` tables. Credit deduction is the only
// mutation path for the remaining-call counter and is guarded by a
// remaining_calls > 0 predicate, so concurrent deductions against a
// single remaining call resolve to exactly one winner under the
// store's row-level update semantics.
type PackageRepo struct{ db *sql.DB }

func NewPackageRepo(db *sql.DB) *PackageRepo { return &PackageRepo{db: db} }

// DB exposes the underlying handle for starting transactions.
func (r *PackageRepo) DB() *sql.DB { return r.db }

// Create inserts an active package definition and returns its ID.
// A name already used by an active package yields ErrNameExists.
func (r *PackageRepo) Create(ctx context.Context, p model.Package) (uint64, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM packages WHERE name=? AND is_active=1", p.Name).Scan(&one)
	if err == nil {
		return 0, ErrNameExists
	}
	if err != sql.ErrNoRows {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO packages (name, call_quota, price, duration_months, description) VALUES (?,?,?,?,?)",
		p.Name, p.CallQuota, p.Price, p.DurationMonths, p.Description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update overwrites all editable fields of a package. ErrNotFound
// when the id does not exist.
func (r *PackageRepo) Update(ctx context.Context, id uint64, p model.Package) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE packages SET name=?, call_quota=?, price=?, duration_months=?, description=? WHERE id=?",
		p.Name, p.CallQuota, p.Price, p.DurationMonths, p.Description, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// PackagePatch is a typed partial update for a package. Nil fields
// are left untouched. The translation to SQL uses a fixed column
// mapping; column names never come from request input.
type PackagePatch struct {
	Name           *string  `json:"name"`
	CallQuota      *int     `json:"callQuota"`
	Price          *float64 `json:"price"`
	DurationMonths *int     `json:"durationMonths"`
	Description    *string  `json:"description"`
	IsActive       *bool    `json:"isActive"`
}

// Empty reports whether the patch carries no fields.
func (p PackagePatch) Empty() bool {
	return p.Name == nil && p.CallQuota == nil && p.Price == nil &&
		p.DurationMonths == nil && p.Description == nil && p.IsActive == nil
}

// Patch applies a partial update. ErrNotFound when the id does not
// exist. MySQL reports zero affected rows for a no-op update of an
// existing row too, so the existence check runs first.
func (r *PackageRepo) Patch(ctx context.Context, id uint64, p PackagePatch) error {
	set := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	if p.Name != nil {
		set = append(set, "name=?")
		args = append(args, *p.Name)
	}
	if p.CallQuota != nil {
		set = append(set, "call_quota=?")
		args = append(args, *p.CallQuota)
	}
	if p.Price != nil {
		set = append(set, "price=?")
		args = append(args, *p.Price)
	}
	if p.DurationMonths != nil {
		set = append(set, "duration_months=?")
		args = append(args, *p.DurationMonths)
	}
	if p.Description != nil {
		set = append(set, "description=?")
		args = append(args, *p.Description)
	}
	if p.IsActive != nil {
		set = append(set, "is_active=?")
		args = append(args, *p.IsActive)
	}
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM packages WHERE id=?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	_, err = r.db.ExecContext(ctx,
		"UPDATE packages SET "+strings.Join(set, ", ")+" WHERE id=?", args...)
	return err
}

// Deactivate soft-deletes a package. Existing subscriptions keep
// their remaining calls. ErrNotFound when no row was affected.
func (r *PackageRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE packages SET is_active=0 WHERE id=?", id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// ListActive returns all active packages ordered by name.
func (r *PackageRepo) ListActive(ctx context.Context) ([]model.Package, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, call_quota, price, duration_months, description, is_active, created_at FROM packages WHERE is_active=1 ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Package, 0)
	for rows.Next() {
		var p model.Package
		if err := rows.Scan(&p.ID, &p.Name, &p.CallQuota, &p.Price, &p.DurationMonths,
			&p.Description, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Assign creates a subscription for a customer from an active
// package definition, seeding remaining_calls with the package quota.
// ErrNotFound when the package is absent or inactive. Returns the new
// subscription id.
func (r *PackageRepo) Assign(ctx context.Context, customerID, packageID uint64) (uint64, error) {
	var quota int
	err := r.db.QueryRowContext(ctx,
		"SELECT call_quota FROM packages WHERE id=? AND is_active=1", packageID).Scan(&quota)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO customer_packages (customer_id, package_id, remaining_calls) VALUES (?,?,?)",
		customerID, packageID, quota)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// DeductCreditTx burns one call from the customer's subscription when
// any remaining calls are left. It reports whether a credit was
// actually consumed: zero affected rows simply means the customer has
// no subscription or no calls left, which is not an error.
func (r *PackageRepo) DeductCreditTx(ctx context.Context, tx *sql.Tx, customerID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE customer_packages SET remaining_calls = remaining_calls - 1 WHERE customer_id=? AND remaining_calls > 0 LIMIT 1",
		customerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertUsageTx appends one audit row for a successful deduction,
// referencing the exact detail line that consumed the call.
func (r *PackageRepo) InsertUsageTx(ctx context.Context, tx *sql.Tx, customerID, requestID, detailID uint64, description string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO package_usage_history (customer_id, request_id, detail_id, description) VALUES (?,?,?,?)",
		customerID, requestID, detailID, description)
	return err
}

// UsageByCustomer returns the customer's deduction history, newest
// first.
func (r *PackageRepo) UsageByCustomer(ctx context.Context, customerID uint64) ([]model.UsageHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, customer_id, request_id, detail_id, description, created_at FROM package_usage_history WHERE customer_id=? ORDER BY id DESC",
		customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.UsageHistory, 0)
	for rows.Next() {
		var u model.UsageHistory
		if err := rows.Scan(&u.ID, &u.CustomerID, &u.RequestID, &u.DetailID, &u.Description, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
