package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/serviceops/backoffice/internal/model"
)

func TestPackageCreateRejectsActiveDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPackageRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM packages WHERE name=? AND is_active=1")).
		WithArgs("Standard").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	_, err := repo.Create(context.Background(), model.Package{Name: "Standard", CallQuota: 10})
	if !errors.Is(err, ErrNameExists) {
		t.Fatalf("err = %v, want ErrNameExists", err)
	}
	checkMet(t, mock)
}

func TestPackagePatchMapsOnlyProvidedColumns(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPackageRepo(db)

	quota := 25
	price := 149.9

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM packages WHERE id=?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE packages SET call_quota=?, price=? WHERE id=?")).
		WithArgs(quota, price, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Patch(context.Background(), 3, PackagePatch{CallQuota: &quota, Price: &price})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	checkMet(t, mock)
}

func TestPackagePatchMissingPackage(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPackageRepo(db)

	name := "x"
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM packages WHERE id=?")).
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	err := repo.Patch(context.Background(), 99, PackagePatch{Name: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	checkMet(t, mock)
}

func TestDeductCreditConsumesExactlyOne(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPackageRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE customer_packages SET remaining_calls = remaining_calls - 1 WHERE customer_id=? AND remaining_calls > 0 LIMIT 1")).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	consumed, err := repo.DeductCreditTx(context.Background(), tx, 7)
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if !consumed {
		t.Fatal("expected a credit to be consumed")
	}
	checkMet(t, mock)
}

func TestDeductCreditNoRemainingCalls(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPackageRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE customer_packages")).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	consumed, err := repo.DeductCreditTx(context.Background(), tx, 7)
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if consumed {
		t.Fatal("no remaining calls must not consume a credit")
	}
	checkMet(t, mock)
}

func TestAssignSeedsQuotaFromPackage(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPackageRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT call_quota FROM packages WHERE id=? AND is_active=1")).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"call_quota"}).AddRow(20))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO customer_packages (customer_id, package_id, remaining_calls) VALUES (?,?,?)")).
		WithArgs(uint64(7), uint64(2), 20).
		WillReturnResult(sqlmock.NewResult(31, 1))

	id, err := repo.Assign(context.Background(), 7, 2)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if id != 31 {
		t.Fatalf("id = %d, want 31", id)
	}
	checkMet(t, mock)
}

func TestDeactivateRemovesPackageFromActiveList(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPackageRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE packages SET is_active=0 WHERE id=?")).
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM packages WHERE is_active=1 ORDER BY name")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "call_quota", "price",
			"duration_months", "description", "is_active", "created_at"}).
			AddRow(2, "Basic", 10, 99.9, 12, "", true, time.Now()))

	if err := repo.Deactivate(context.Background(), 4); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, err := repo.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Basic" {
		t.Fatalf("active list = %+v", active)
	}
	checkMet(t, mock)
}
