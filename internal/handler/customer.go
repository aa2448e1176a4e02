package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/serviceops/backoffice/internal/model"
	"github.com/serviceops/backoffice/internal/repository"
)

// CustomerHandler exposes the customer registry. These are
// pass-through CRUD routes; the interesting customer-derived
// behavior (active checks, subscriptions) lives in the request and
// package workflows.
type CustomerHandler struct {
	Customers *repository.CustomerRepo
	Packages  *repository.PackageRepo
	Log       *logrus.Logger
}

func NewCustomerHandler(customers *repository.CustomerRepo, packages *repository.PackageRepo, log *logrus.Logger) *CustomerHandler {
	if customers == nil || packages == nil {
		panic("nil repository passed to NewCustomerHandler")
	}
	return &CustomerHandler{Customers: customers, Packages: packages, Log: log}
}

type customerReq struct {
	Title string  `json:"title"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

type customerResp struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func toCustomerResp(c model.Customer) customerResp {
	return customerResp{ID: c.ID, Title: c.Title, Email: c.Email, Phone: c.Phone,
		IsActive: c.IsActive, CreatedAt: c.CreatedAt}
}

// Create handles POST /v1/customers (admin).
func (h *CustomerHandler) Create(c echo.Context) error {
	var req customerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	id, err := h.Customers.Create(c.Request().Context(), req.Title, req.Email, req.Phone)
	if err != nil {
		h.Log.WithError(err).Error("create customer failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"customerId": id})
}

// List handles GET /v1/customers.
func (h *CustomerHandler) List(c echo.Context) error {
	customers, err := h.Customers.List(c.Request().Context())
	if err != nil {
		h.Log.WithError(err).Error("list customers failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	out := make([]customerResp, 0, len(customers))
	for _, cu := range customers {
		out = append(out, toCustomerResp(cu))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/customers/:id.
func (h *CustomerHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}
	cu, err := h.Customers.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		h.Log.WithError(err).Error("get customer failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, toCustomerResp(cu))
}

// Update handles PUT /v1/customers/:id.
func (h *CustomerHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}
	var req customerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if err := h.Customers.Update(c.Request().Context(), id, req.Title, req.Email, req.Phone); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		h.Log.WithError(err).Error("update customer failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "customer updated"})
}

// Deactivate handles PATCH /v1/customers/:id/deactivate (admin): a
// soft delete that blocks new requests and assignments but keeps
// history intact.
func (h *CustomerHandler) Deactivate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}
	if err := h.Customers.Deactivate(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "customer not found"})
		}
		h.Log.WithError(err).Error("deactivate customer failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "customer deactivated"})
}

// Usage handles GET /v1/customers/:id/usage: the customer's package
// usage history, newest first.
func (h *CustomerHandler) Usage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}
	usage, err := h.Packages.UsageByCustomer(c.Request().Context(), id)
	if err != nil {
		h.Log.WithError(err).Error("usage history failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	type usageResp struct {
		ID          uint64    `json:"id"`
		RequestID   uint64    `json:"requestId"`
		DetailID    uint64    `json:"detailId"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"createdAt"`
	}
	out := make([]usageResp, 0, len(usage))
	for _, u := range usage {
		out = append(out, usageResp{ID: u.ID, RequestID: u.RequestID, DetailID: u.DetailID,
			Description: u.Description, CreatedAt: u.CreatedAt})
	}
	return c.JSON(http.StatusOK, out)
}
