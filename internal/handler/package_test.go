package handler

import (
	"net/http"
	"testing"

	"github.com/serviceops/backoffice/internal/repository"
)

func newPackageHandler(t *testing.T) *PackageHandler {
	t.Helper()
	db, _ := newMockDB(t)
	return NewPackageHandler(repository.NewPackageRepo(db), repository.NewCustomerRepo(db), quietLog())
}

func TestCreatePackageRejectsZeroPrice(t *testing.T) {
	h := newPackageHandler(t)

	// No query expectations: a free package must fail validation
	// before the store is touched.
	c, rec := newJSONCtx(http.MethodPost, "/v1/admin/packages",
		`{"name":"Free","callQuota":10,"price":0,"durationMonths":12}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestCreatePackageRejectsNegativePrice(t *testing.T) {
	h := newPackageHandler(t)

	c, rec := newJSONCtx(http.MethodPost, "/v1/admin/packages",
		`{"name":"Broken","callQuota":10,"price":-5,"durationMonths":12}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestPatchPackageRejectsZeroPrice(t *testing.T) {
	h := newPackageHandler(t)

	c, rec := newJSONCtx(http.MethodPut, "/v1/packages/3", `{"price":0}`)
	c.SetParamNames("id")
	c.SetParamValues("3")
	if err := h.Patch(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusBadRequest)
}
