package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/serviceops/backoffice/internal/model"
)

// RequestRepo provides CRUD and lifecycle operations for the
// `service_requests` table. Requests are created as Pending and move
// between statuses via explicit updates; mutations that target a
// specific id detect missing rows through the affected-row count
// rather than a separate existence query.
type RequestRepo struct{ db *sql.DB }

func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

// DB exposes the underlying handle for starting transactions.
func (r *RequestRepo) DB() *sql.DB { return r.db }

// Create inserts a new request in status Pending and returns its ID.
// The caller must have verified that the customer is active.
func (r *RequestRepo) Create(ctx context.Context, customerID uint64, title, description string, createdBy uint64) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO service_requests (customer_id, title, description, status, created_by, created_at) VALUES (?,?,?,?,?,?)",
		customerID, title, description, model.StatusPending, createdBy, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update overwrites title and description. ErrNotFound when no row
// was affected.
func (r *RequestRepo) Update(ctx context.Context, id uint64, title, description string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE service_requests SET title=?, description=? WHERE id=?",
		title, description, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// Delete hard-deletes a request. Detail lines are removed by the
// ON DELETE CASCADE foreign key. ErrNotFound when no row was affected.
func (r *RequestRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM service_requests WHERE id=?", id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// UpdateStatus sets the request status. The caller must validate the
// status string first; this method writes whatever it is given.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE service_requests SET status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// Approve sets the status to Approved and records the acting user and
// approval time. ErrNotFound when no row was affected.
func (r *RequestRepo) Approve(ctx context.Context, id, approverID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE service_requests SET status=?, approved_by=?, approved_at=? WHERE id=?",
		model.StatusApproved, approverID, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// SetCompletedTx sets the request status to Completed within an
// existing transaction. The caller owns commit/rollback; combined
// with ServiceRepo.CompleteTx this keeps the completion flag and the
// request status consistent.
func (r *RequestRepo) SetCompletedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE service_requests SET status=? WHERE id=?", model.StatusCompleted, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// GetByID fetches one request. ErrNotFound when absent.
func (r *RequestRepo) GetByID(ctx context.Context, id uint64) (model.ServiceRequest, error) {
	var (
		req        model.ServiceRequest
		approvedBy sql.NullInt64
		approvedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, title, description, status, created_by, created_at, approved_by, approved_at
		 FROM service_requests WHERE id=?`,
		id).Scan(&req.ID, &req.CustomerID, &req.Title, &req.Description, &req.Status,
		&req.CreatedBy, &req.CreatedAt, &approvedBy, &approvedAt)
	if err == sql.ErrNoRows {
		return req, ErrNotFound
	}
	if err != nil {
		return req, err
	}
	if approvedBy.Valid {
		v := uint64(approvedBy.Int64)
		req.ApprovedBy = &v
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		req.ApprovedAt = &t
	}
	return req, nil
}

// List returns all requests ordered by id descending (newest first).
// No pagination; the front-end consumes the full list.
func (r *RequestRepo) List(ctx context.Context) ([]model.ServiceRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, customer_id, title, description, status, created_by, created_at
		 FROM service_requests ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ServiceRequest, 0)
	for rows.Next() {
		var req model.ServiceRequest
		if err := rows.Scan(&req.ID, &req.CustomerID, &req.Title, &req.Description,
			&req.Status, &req.CreatedBy, &req.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// CustomerIDTx returns the owning customer of a request within a
// transaction. ErrNotFound when the request does not exist. The
// detail-line workflow uses this to resolve whose subscription is
// charged.
func (r *RequestRepo) CustomerIDTx(ctx context.Context, tx *sql.Tx, requestID uint64) (uint64, error) {
	var customerID uint64
	err := tx.QueryRowContext(ctx,
		"SELECT customer_id FROM service_requests WHERE id=?", requestID).Scan(&customerID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return customerID, nil
}

// checkAffected maps a zero affected-row count to ErrNotFound.
func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
