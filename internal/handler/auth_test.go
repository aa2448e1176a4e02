package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/serviceops/backoffice/internal/config"
	"github.com/serviceops/backoffice/internal/repository"
	"github.com/serviceops/backoffice/internal/utils"
)

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 30}
	return NewAuthHandler(cfg, repository.NewUserRepo(db), quietLog()), mock
}

func userRow(t *testing.T, password string, active bool) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, 0)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return sqlmock.NewRows([]string{"id", "username", "password_hash", "full_name",
		"role", "is_active", "created_at", "updated_at"}).
		AddRow(4, "kemal", hash, "Kemal A.", "admin", active, time.Now(), time.Now())
}

func TestLoginIssuesTokenWithIdentity(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username=?")).
		WithArgs("kemal").
		WillReturnRows(userRow(t, "secret123", true))

	c, rec := newJSONCtx(http.MethodPost, "/v1/users/login", `{"username":"kemal","password":"secret123"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusOK)

	var resp struct {
		Success bool   `json:"success"`
		UserID  uint64 `json:"userId"`
		Name    string `json:"name"`
		Role    string `json:"role"`
		Token   string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.UserID != 4 || resp.Role != "admin" || resp.Token == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username=?")).
		WithArgs("kemal").
		WillReturnRows(userRow(t, "secret123", true))

	c, rec := newJSONCtx(http.MethodPost, "/v1/users/login", `{"username":"kemal","password":"wrong"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestLoginInactiveUser(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username=?")).
		WithArgs("kemal").
		WillReturnRows(userRow(t, "secret123", false))

	c, rec := newJSONCtx(http.MethodPost, "/v1/users/login", `{"username":"kemal","password":"secret123"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestCreateUserDefaultsRole(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("yeni", sqlmock.AnyArg(), "Yeni Personel", "technical").
		WillReturnResult(sqlmock.NewResult(9, 1))

	c, rec := newJSONCtx(http.MethodPost, "/v1/users",
		`{"username":"yeni","password":"pass1234","fullName":"Yeni Personel"}`)
	if err := h.CreateUser(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	wantStatus(t, rec, http.StatusCreated)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
