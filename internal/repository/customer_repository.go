package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/serviceops/backoffice/internal/model"
)

// CustomerRepo provides CRUD operations for the `customers` table.
// Customers are never hard-deleted; Deactivate flips is_active so
// existing requests, subscriptions and products keep their owner.
type CustomerRepo struct{ db *sql.DB }

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// DB exposes the underlying handle for starting transactions.
func (r *CustomerRepo) DB() *sql.DB { return r.db }

// Create inserts a customer and returns its ID.
func (r *CustomerRepo) Create(ctx context.Context, title string, email, phone *string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO customers (title, email, phone) VALUES (?,?,?)",
		strings.TrimSpace(title), email, phone)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches one customer. ErrNotFound when absent.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (model.Customer, error) {
	var c model.Customer
	err := r.db.QueryRowContext(ctx,
		"SELECT id,title,email,phone,is_active,created_at,updated_at FROM customers WHERE id=? LIMIT 1",
		id).Scan(&c.ID, &c.Title, &c.Email, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// List returns all customers ordered by title.
func (r *CustomerRepo) List(ctx context.Context) ([]model.Customer, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id,title,email,phone,is_active,created_at,updated_at FROM customers ORDER BY title")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Customer, 0)
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Title, &c.Email, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update overwrites title and contact fields. ErrNotFound when the id
// does not exist (write-then-check on affected rows).
func (r *CustomerRepo) Update(ctx context.Context, id uint64, title string, email, phone *string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE customers SET title=?, email=?, phone=? WHERE id=?",
		strings.TrimSpace(title), email, phone, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a customer.
func (r *CustomerRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE customers SET is_active=0 WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveExists reports whether the customer exists and is active.
// The request workflow uses this as a pre-check before inserting new
// requests for the customer.
func (r *CustomerRepo) ActiveExists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM customers WHERE id=? AND is_active=1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
