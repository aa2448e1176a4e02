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

// RequestHandler implements the service-request lifecycle: creation,
// metadata updates, status progression, approval, deletion and reads.
// Role restrictions (admin/technical for delete and approve) are
// applied by route middleware; handlers only resolve the acting user
// from the normalized identity in the context.
type RequestHandler struct {
	Requests  *repository.RequestRepo
	Customers *repository.CustomerRepo
	Log       *logrus.Logger
}

func NewRequestHandler(requests *repository.RequestRepo, customers *repository.CustomerRepo, log *logrus.Logger) *RequestHandler {
	if requests == nil || customers == nil {
		panic("nil repository passed to NewRequestHandler")
	}
	return &RequestHandler{Requests: requests, Customers: customers, Log: log}
}

type createRequestReq struct {
	CustomerID  uint64 `json:"customerId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateRequestReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type statusChangeReq struct {
	RequestID uint64 `json:"requestId"`
	Status    string `json:"status"`
}

type requestResp struct {
	ID          uint64     `json:"id"`
	CustomerID  uint64     `json:"customerId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedBy   uint64     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	ApprovedBy  *uint64    `json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
}

func toRequestResp(r model.ServiceRequest) requestResp {
	return requestResp{ID: r.ID, CustomerID: r.CustomerID, Title: r.Title,
		Description: r.Description, Status: r.Status, CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt, ApprovedBy: r.ApprovedBy, ApprovedAt: r.ApprovedAt}
}

// Create handles POST /v1/requests. The customer must exist and be
// active and the title must be non-empty; no row is inserted when
// validation fails.
func (h *RequestHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.CustomerID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customerId required"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title must not be empty"})
	}

	ctx := c.Request().Context()
	active, err := h.Customers.ActiveExists(ctx, req.CustomerID)
	if err != nil {
		h.Log.WithError(err).Error("create request: customer check failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	if !active {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": repository.ErrCustomerInactive.Error()})
	}

	id, err := h.Requests.Create(ctx, req.CustomerID, strings.TrimSpace(req.Title), req.Description, userID)
	if err != nil {
		h.Log.WithError(err).Error("create request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"requestId": id})
}

// Update handles PUT /v1/requests/:id. Missing rows are detected by
// the affected-row count of the write itself, not a pre-check. No
// status or ownership restriction applies; a Completed request stays
// editable.
func (h *RequestHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	var req updateRequestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title must not be empty"})
	}
	if err := h.Requests.Update(c.Request().Context(), id, strings.TrimSpace(req.Title), req.Description); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		h.Log.WithError(err).Error("update request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "request updated"})
}

// Delete handles DELETE /v1/requests/:id (admin/technical).
func (h *RequestHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	if err := h.Requests.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		h.Log.WithError(err).Error("delete request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "request deleted"})
}

// ChangeStatus handles POST /v1/requests/status. Any recognized
// status may follow any other; unrecognized values are rejected
// before touching the store.
func (h *RequestHandler) ChangeStatus(c echo.Context) error {
	var req statusChangeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RequestID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "requestId required"})
	}
	if !model.ValidStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request status"})
	}
	if err := h.Requests.UpdateStatus(c.Request().Context(), req.RequestID, req.Status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		h.Log.WithError(err).Error("status change failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "status updated", "status": req.Status})
}

// Approve handles PATCH /v1/requests/:id/approve (admin/technical).
// Records the approver and the approval time alongside the status.
func (h *RequestHandler) Approve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	if err := h.Requests.Approve(c.Request().Context(), id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		h.Log.WithError(err).Error("approve request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "request approved"})
}

// Get handles GET /v1/requests/:id.
func (h *RequestHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	req, err := h.Requests.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		h.Log.WithError(err).Error("get request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusOK, toRequestResp(req))
}

// List handles GET /v1/requests: all requests, newest first, no
// pagination. The route sits behind the redis response cache.
func (h *RequestHandler) List(c echo.Context) error {
	requests, err := h.Requests.List(c.Request().Context())
	if err != nil {
		h.Log.WithError(err).Error("list requests failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	out := make([]requestResp, 0, len(requests))
	for _, r := range requests {
		out = append(out, toRequestResp(r))
	}
	return c.JSON(http.StatusOK, out)
}
