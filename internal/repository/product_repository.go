package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/serviceops/backoffice/internal/model"
)

// ProductRepo provides access to the `products` table: per-customer
// purchased items with expiry dates. It backs the expiring-soon
// listing, the bulk spreadsheet import and the expiry-notification
// sweep.
type ProductRepo struct{ db *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// DB exposes the underlying handle for starting transactions.
func (r *ProductRepo) DB() *sql.DB { return r.db }

// Create inserts one product and returns its ID.
func (r *ProductRepo) Create(ctx context.Context, p model.Product) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (customer_id, name, description, purchased_at, expires_at, cost, sale_price)
		 VALUES (?,?,?,?,?,?,?)`,
		p.CustomerID, p.Name, p.Description, p.PurchasedAt, p.ExpiresAt, p.Cost, p.SalePrice)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// bulkInsertChunk caps the rows per INSERT statement. MySQL allows at
// most 65535 placeholders per prepared statement; at 7 columns per
// row this stays far below that.
const bulkInsertChunk = 1000

// BulkInsertTx inserts the given products within the provided
// transaction, batching the rows into multi-values INSERT statements.
// Passing an empty slice has no effect and returns nil. The whole
// import is one transaction; a failing row aborts it all.
func (r *ProductRepo) BulkInsertTx(ctx context.Context, tx *sql.Tx, products []model.Product) error {
	for len(products) > 0 {
		n := len(products)
		if n > bulkInsertChunk {
			n = bulkInsertChunk
		}
		query := `INSERT INTO products (customer_id, name, description, purchased_at, expires_at, cost, sale_price) VALUES `
		args := make([]interface{}, 0, n*7)
		for i, p := range products[:n] {
			if i > 0 {
				query += ","
			}
			query += "(?,?,?,?,?,?,?)"
			args = append(args, p.CustomerID, p.Name, p.Description, p.PurchasedAt, p.ExpiresAt, p.Cost, p.SalePrice)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
		products = products[n:]
	}
	return nil
}

// ListByCustomer returns all products of a customer.
func (r *ProductRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Product, error) {
	return r.list(ctx,
		`SELECT id, customer_id, name, description, purchased_at, expires_at, cost, sale_price, notified, created_at
		 FROM products WHERE customer_id=? ORDER BY id`, customerID)
}

// ListExpiring returns the customer's products whose expiry falls
// between today and today+days (inclusive).
func (r *ProductRepo) ListExpiring(ctx context.Context, customerID uint64, days int) ([]model.Product, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	end := today.AddDate(0, 0, days)
	return r.list(ctx,
		`SELECT id, customer_id, name, description, purchased_at, expires_at, cost, sale_price, notified, created_at
		 FROM products WHERE customer_id=? AND expires_at BETWEEN ? AND ? ORDER BY expires_at`,
		customerID, today, end)
}

// UnnotifiedExpiring returns products that have never been notified
// and expire within the given number of days. Already-notified
// products are excluded by the filter, which makes the sweep
// idempotent per run.
func (r *ProductRepo) UnnotifiedExpiring(ctx context.Context, days int) ([]model.Product, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	end := today.AddDate(0, 0, days)
	return r.list(ctx,
		`SELECT id, customer_id, name, description, purchased_at, expires_at, cost, sale_price, notified, created_at
		 FROM products WHERE notified=0 AND expires_at BETWEEN ? AND ? ORDER BY expires_at`,
		today, end)
}

// MarkNotified flips notified=1 for all given ids in one batched
// statement. Callers must not issue the update for an empty id set.
func (r *ProductRepo) MarkNotified(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE products SET notified=1 WHERE id IN ("+strings.Join(placeholders, ",")+")", args...)
	return err
}

func (r *ProductRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.Name, &p.Description, &p.PurchasedAt,
			&p.ExpiresAt, &p.Cost, &p.SalePrice, &p.Notified, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
