package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/serviceops/backoffice/internal/model"
)

func productColumns() []string {
	return []string{"id", "customer_id", "name", "description", "purchased_at",
		"expires_at", "cost", "sale_price", "notified", "created_at"}
}

func TestUnnotifiedExpiringFiltersNotified(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProductRepo(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(productColumns()).
		AddRow(1, 7, "license", "", now.AddDate(0, -11, 0), now.AddDate(0, 0, 10), 100.0, 150.0, false, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE notified=0 AND expires_at BETWEEN ? AND ?")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	products, err := repo.UnnotifiedExpiring(context.Background(), 15)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(products) != 1 || products[0].ID != 1 {
		t.Fatalf("products = %+v, want single product 1", products)
	}
	checkMet(t, mock)
}

func TestMarkNotifiedBatchesIDs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProductRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET notified=1 WHERE id IN (?,?,?)")).
		WithArgs(uint64(1), uint64(2), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.MarkNotified(context.Background(), []uint64{1, 2, 3}); err != nil {
		t.Fatalf("mark notified: %v", err)
	}
	checkMet(t, mock)
}

func TestMarkNotifiedEmptySetIssuesNoUpdate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProductRepo(db)

	if err := repo.MarkNotified(context.Background(), nil); err != nil {
		t.Fatalf("mark notified: %v", err)
	}
	checkMet(t, mock)
}

func TestBulkInsertSingleStatement(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProductRepo(db)

	now := time.Now().UTC()
	products := []model.Product{
		{CustomerID: 7, Name: "a", PurchasedAt: now, ExpiresAt: now.AddDate(1, 0, 0), Cost: 1, SalePrice: 2},
		{CustomerID: 7, Name: "b", PurchasedAt: now, ExpiresAt: now.AddDate(1, 0, 0), Cost: 3, SalePrice: 4},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("VALUES (?,?,?,?,?,?,?),(?,?,?,?,?,?,?)")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.BulkInsertTx(context.Background(), tx, products); err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	checkMet(t, mock)
}

func TestBulkInsertChunksLargeBatches(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProductRepo(db)

	now := time.Now().UTC()
	products := make([]model.Product, bulkInsertChunk+1)
	for i := range products {
		products[i] = model.Product{CustomerID: 7, Name: "p",
			PurchasedAt: now, ExpiresAt: now.AddDate(1, 0, 0), Cost: 1, SalePrice: 2}
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO products").
		WillReturnResult(sqlmock.NewResult(0, int64(bulkInsertChunk)))
	mock.ExpectExec(regexp.QuoteMeta("VALUES (?,?,?,?,?,?,?)")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.BulkInsertTx(context.Background(), tx, products); err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	checkMet(t, mock)
}
