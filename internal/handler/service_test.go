package handler

import (
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/serviceops/backoffice/internal/repository"
)

var errDetailInsert = errors.New("insert failed")

func newServiceHandler(t *testing.T) (*ServiceHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewServiceHandler(
		repository.NewRequestRepo(db),
		repository.NewServiceRepo(db),
		repository.NewPackageRepo(db),
		repository.NewCustomerRepo(db),
		quietLog()), mock
}

func TestAddDetailsRejectsNonPositiveQuantity(t *testing.T) {
	h, mock := newServiceHandler(t)

	body := `{"requestId":5,"lines":[{"itemName":"toner","quantity":0,"unitPrice":10}]}`
	c, rec := newJSONCtx(http.MethodPost, "/v1/service/details", body)

	if err := h.AddDetails(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusBadRequest)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no transaction must start on validation failure: %v", err)
	}
}

// Two lines against a subscription with one remaining call: the first
// line consumes the last credit and writes one usage row, the second
// line inserts without a deduction, and the whole batch commits once.
func TestAddDetailsDeductsPerLineUntilExhausted(t *testing.T) {
	h, mock := newServiceHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT customer_id FROM service_requests WHERE id=?")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id"}).AddRow(7))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_details")).
		WithArgs(uint64(5), "toner", 2, 10.0).
		WillReturnResult(sqlmock.NewResult(101, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE customer_packages SET remaining_calls = remaining_calls - 1")).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO package_usage_history")).
		WithArgs(uint64(7), uint64(5), uint64(101), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_details")).
		WithArgs(uint64(5), "cable", 1, 5.0).
		WillReturnResult(sqlmock.NewResult(102, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE customer_packages SET remaining_calls = remaining_calls - 1")).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectCommit()

	body := `{"requestId":5,"lines":[
		{"itemName":"toner","quantity":2,"unitPrice":10},
		{"itemName":"cable","quantity":1,"unitPrice":5}]}`
	c, rec := newJSONCtx(http.MethodPost, "/v1/service/details", body)

	if err := h.AddDetails(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusCreated)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAddDetailsRollsBackWhenInsertFails(t *testing.T) {
	h, mock := newServiceHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT customer_id FROM service_requests WHERE id=?")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"customer_id"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_details")).
		WillReturnError(errDetailInsert)
	mock.ExpectRollback()

	body := `{"requestId":5,"lines":[{"itemName":"toner","quantity":1,"unitPrice":10}]}`
	c, rec := newJSONCtx(http.MethodPost, "/v1/service/details", body)

	if err := h.AddDetails(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusInternalServerError)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCompleteMovesStatusAndRecordTogether(t *testing.T) {
	h, mock := newServiceHandler(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE service_requests SET status=? WHERE id=?")).
		WithArgs("Completed", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO services")).
		WithArgs(uint64(5), sqlmock.AnyArg(), uint64(3)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, rec := newJSONCtx(http.MethodPost, "/v1/service/complete", `{"requestId":5}`)
	c.Set("user_id", uint64(3))

	if err := h.Complete(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusOK)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCompleteReplayReportsSuccess(t *testing.T) {
	h, mock := newServiceHandler(t)

	// Replaying completion on an already-Completed request: the
	// connection uses clientFoundRows, so the status UPDATE reports
	// the matched row even though nothing changes, and the services
	// upsert hits its duplicate-key branch.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE service_requests SET status=? WHERE id=?")).
		WithArgs("Completed", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO services")).
		WithArgs(uint64(5), sqlmock.AnyArg(), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	c, rec := newJSONCtx(http.MethodPost, "/v1/service/complete", `{"requestId":5}`)
	c.Set("user_id", uint64(3))

	if err := h.Complete(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusOK)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
