package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/serviceops/backoffice/internal/model"
)

// ServiceRepo provides access to the `service_details` and `services`
// tables. Detail-line insertion participates in the package credit
// workflow, so all mutating methods run inside a caller-owned
// transaction: the handler opens one transaction per batch and rolls
// the whole batch back if any step fails.
type ServiceRepo struct{ db *sql.DB }

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

// DB exposes the underlying handle for starting transactions.
func (r *ServiceRepo) DB() *sql.DB { return r.db }

// DetailLine carries one incoming service detail line. Quantity and
// UnitPrice must be positive; validation happens in the handler
// before any write is issued.
type DetailLine struct {
	ItemName  string  `json:"itemName"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// InsertDetailTx inserts one detail line for a request and returns
// the generated line id.
func (r *ServiceRepo) InsertDetailTx(ctx context.Context, tx *sql.Tx, requestID uint64, line DetailLine) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO service_details (request_id, item_name, quantity, unit_price) VALUES (?,?,?,?)",
		requestID, line.ItemName, line.Quantity, line.UnitPrice)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// DetailsByRequest returns all detail lines of a request in insertion
// order. Used by the report generator.
func (r *ServiceRepo) DetailsByRequest(ctx context.Context, requestID uint64) ([]model.ServiceDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, request_id, item_name, quantity, unit_price, created_at FROM service_details WHERE request_id=? ORDER BY id",
		requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ServiceDetail, 0)
	for rows.Next() {
		var d model.ServiceDetail
		if err := rows.Scan(&d.ID, &d.RequestID, &d.ItemName, &d.Quantity, &d.UnitPrice, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CompleteTx marks the service record of a request completed,
// creating the record when none exists yet. request_id carries a
// unique key, so the statement is an idempotent upsert. Runs inside
// the caller's transaction together with RequestRepo.SetCompletedTx
// so the completion flag and the request status move together.
func (r *ServiceRepo) CompleteTx(ctx context.Context, tx *sql.Tx, requestID, userID uint64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO services (request_id, completed, completed_at, completed_by)
		 VALUES (?, 1, ?, ?)
		 ON DUPLICATE KEY UPDATE completed=1, completed_at=VALUES(completed_at), completed_by=VALUES(completed_by)`,
		requestID, time.Now().UTC(), userID)
	return err
}
