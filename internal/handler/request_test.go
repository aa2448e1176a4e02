package handler

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/serviceops/backoffice/internal/repository"
)

func newRequestHandler(t *testing.T) (*RequestHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewRequestHandler(repository.NewRequestRepo(db), repository.NewCustomerRepo(db), quietLog()), mock
}

func TestCreateRequestRejectsEmptyTitle(t *testing.T) {
	h, mock := newRequestHandler(t)

	c, rec := newJSONCtx(http.MethodPost, "/v1/requests", `{"customerId":7,"title":"   "}`)
	c.Set("user_id", uint64(3))

	if err := h.Create(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusBadRequest)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query must run on validation failure: %v", err)
	}
}

func TestCreateRequestRejectsNonIntegerCustomer(t *testing.T) {
	h, _ := newRequestHandler(t)

	c, rec := newJSONCtx(http.MethodPost, "/v1/requests", `{"customerId":"abc","title":"x"}`)
	c.Set("user_id", uint64(3))

	if err := h.Create(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestCreateRequestInactiveCustomer(t *testing.T) {
	h, mock := newRequestHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM customers WHERE id=? AND is_active=1")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	c, rec := newJSONCtx(http.MethodPost, "/v1/requests", `{"customerId":7,"title":"printer down"}`)
	c.Set("user_id", uint64(3))

	if err := h.Create(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusBadRequest)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestChangeStatusRejectsUnknownStatus(t *testing.T) {
	h, mock := newRequestHandler(t)

	c, rec := newJSONCtx(http.MethodPost, "/v1/requests/status", `{"requestId":5,"status":"Archived"}`)

	if err := h.ChangeStatus(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusBadRequest)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no update must run for an unknown status: %v", err)
	}
}

func TestChangeStatusAcceptsAnyKnownTransition(t *testing.T) {
	h, mock := newRequestHandler(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE service_requests SET status=? WHERE id=?")).
		WithArgs("Rejected", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newJSONCtx(http.MethodPost, "/v1/requests/status", `{"requestId":5,"status":"Rejected"}`)

	if err := h.ChangeStatus(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusOK)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteRequestMissing(t *testing.T) {
	h, mock := newRequestHandler(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM service_requests WHERE id=?")).
		WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	c, rec := newJSONCtx(http.MethodDelete, "/v1/requests/99", "")
	c.SetParamNames("id")
	c.SetParamValues("99")

	if err := h.Delete(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusNotFound)
}
