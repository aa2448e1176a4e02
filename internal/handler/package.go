package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/serviceops/backoffice/internal/model"
	"github.com/serviceops/backoffice/internal/repository"
)

// PackageHandler covers the package catalog and customer
// subscriptions. All catalog routes are admin-only via route
// middleware.
type PackageHandler struct {
	Packages  *repository.PackageRepo
	Customers *repository.CustomerRepo
	Log       *logrus.Logger
	validate  *validator.Validate
}

func NewPackageHandler(packages *repository.PackageRepo, customers *repository.CustomerRepo, log *logrus.Logger) *PackageHandler {
	if packages == nil || customers == nil {
		panic("nil repository passed to NewPackageHandler")
	}
	return &PackageHandler{Packages: packages, Customers: customers, Log: log,
		validate: validator.New()}
}

type packageReq struct {
	Name           string  `json:"name" validate:"required"`
	CallQuota      int     `json:"callQuota" validate:"gt=0"`
	Price          float64 `json:"price" validate:"gt=0"`
	DurationMonths int     `json:"durationMonths" validate:"gt=0"`
	Description    string  `json:"description"`
}

type assignReq struct {
	CustomerID uint64 `json:"customerId" validate:"gt=0"`
	PackageID  uint64 `json:"packageId" validate:"gt=0"`
}

type packageResp struct {
	ID             uint64  `json:"id"`
	Name           string  `json:"name"`
	CallQuota      int     `json:"callQuota"`
	Price          float64 `json:"price"`
	DurationMonths int     `json:"durationMonths"`
	Description    string  `json:"description"`
}

// Create handles POST /v1/admin/packages (admin). A name already in
// use by an active package is rejected.
func (h *PackageHandler) Create(c echo.Context) error {
	var req packageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid package fields"})
	}
	id, err := h.Packages.Create(c.Request().Context(), model.Package{
		Name: req.Name, CallQuota: req.CallQuota, Price: req.Price,
		DurationMonths: req.DurationMonths, Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNameExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "an active package with this name already exists"})
		}
		h.Log.WithError(err).Error("create package failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"packageId": id})
}

// Update handles PUT /v1/admin/packages/:id (admin): full overwrite
// of the editable fields.
func (h *PackageHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid package id"})
	}
	var req packageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid package fields"})
	}
	err = h.Packages.Update(c.Request().Context(), id, model.Package{
		Name: req.Name, CallQuota: req.CallQuota, Price: req.Price,
		DurationMonths: req.DurationMonths, Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "package not found"})
		}
		h.Log.WithError(err).Error("update package failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "package updated"})
}

// Patch handles PUT /v1/packages/:id: a partial update where absent
// fields keep their current value. The patch type maps JSON fields to
// columns statically, so request input never names a column.
func (h *PackageHandler) Patch(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid package id"})
	}
	var patch repository.PackagePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if patch.Empty() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no fields to update"})
	}
	if patch.CallQuota != nil && *patch.CallQuota <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "callQuota must be positive"})
	}
	if patch.Price != nil && *patch.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be positive"})
	}
	if err := h.Packages.Patch(c.Request().Context(), id, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "package not found"})
		}
		h.Log.WithError(err).Error("patch package failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "package updated"})
}

// Deactivate handles PATCH /v1/admin/packages/:id/deactivate (admin).
// Soft delete; existing subscriptions keep their remaining calls.
func (h *PackageHandler) Deactivate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid package id"})
	}
	if err := h.Packages.Deactivate(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "package not found"})
		}
		h.Log.WithError(err).Error("deactivate package failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "package deactivated"})
}

// List handles GET /v1/admin/packages: active packages only, ordered
// by name, behind the response cache.
func (h *PackageHandler) List(c echo.Context) error {
	packages, err := h.Packages.ListActive(c.Request().Context())
	if err != nil {
		h.Log.WithError(err).Error("list packages failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	out := make([]packageResp, 0, len(packages))
	for _, p := range packages {
		out = append(out, packageResp{ID: p.ID, Name: p.Name, CallQuota: p.CallQuota,
			Price: p.Price, DurationMonths: p.DurationMonths, Description: p.Description})
	}
	return c.JSON(http.StatusOK, out)
}

// Assign handles POST /v1/admin/packages/assign (admin): creates a
// subscription seeded with the package call quota. The customer must
// be active and the package active.
func (h *PackageHandler) Assign(c echo.Context) error {
	var req assignReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customerId and packageId required"})
	}
	ctx := c.Request().Context()
	active, err := h.Customers.ActiveExists(ctx, req.CustomerID)
	if err != nil {
		h.Log.WithError(err).Error("assign package: customer check failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	if !active {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": repository.ErrCustomerInactive.Error()})
	}
	id, err := h.Packages.Assign(ctx, req.CustomerID, req.PackageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "package missing or inactive"})
		}
		h.Log.WithError(err).Error("assign package failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"subscriptionId": id})
}
