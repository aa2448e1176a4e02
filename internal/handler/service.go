package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/serviceops/backoffice/internal/report"
	"github.com/serviceops/backoffice/internal/repository"
)

// ServiceHandler covers the per-request service work: recording
// detail lines with package credit deduction, marking a request
// completed and rendering the PDF report.
type ServiceHandler struct {
	Requests  *repository.RequestRepo
	Services  *repository.ServiceRepo
	Packages  *repository.PackageRepo
	Customers *repository.CustomerRepo
	Log       *logrus.Logger
}

func NewServiceHandler(requests *repository.RequestRepo, services *repository.ServiceRepo,
	packages *repository.PackageRepo, customers *repository.CustomerRepo, log *logrus.Logger) *ServiceHandler {
	if requests == nil || services == nil || packages == nil || customers == nil {
		panic("nil repository passed to NewServiceHandler")
	}
	return &ServiceHandler{Requests: requests, Services: services, Packages: packages,
		Customers: customers, Log: log}
}

type addDetailsReq struct {
	RequestID uint64                  `json:"requestId"`
	Lines     []repository.DetailLine `json:"lines"`
}

type detailResult struct {
	DetailID     uint64 `json:"detailId"`
	ItemName     string `json:"itemName"`
	CreditUsed   bool   `json:"creditUsed"`
	CreditSource string `json:"creditSource"`
}

type completeReq struct {
	RequestID uint64 `json:"requestId"`
}

// AddDetails handles POST /v1/service/details. The whole batch runs
// in one transaction: every line is inserted, one package credit is
// deducted per line while the customer has any left, and each
// successful deduction gets exactly one usage history row pointing at
// the line that consumed it. Any failure rolls the entire batch back.
func (h *ServiceHandler) AddDetails(c echo.Context) error {
	var req addDetailsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RequestID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "requestId required"})
	}
	if len(req.Lines) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lines must not be empty"})
	}
	for i, line := range req.Lines {
		if strings.TrimSpace(line.ItemName) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("line %d: itemName required", i)})
		}
		if line.Quantity <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("line %d: quantity must be positive", i)})
		}
		if line.UnitPrice <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("line %d: unitPrice must be positive", i)})
		}
	}

	ctx := c.Request().Context()
	tx, err := h.Services.DB().BeginTx(ctx, nil)
	if err != nil {
		h.Log.WithError(err).Error("add details: begin tx failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	customerID, err := h.Requests.CustomerIDTx(ctx, tx, req.RequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		h.Log.WithError(err).Error("add details: customer lookup failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	results := make([]detailResult, 0, len(req.Lines))
	for _, line := range req.Lines {
		line.ItemName = strings.TrimSpace(line.ItemName)
		detailID, err := h.Services.InsertDetailTx(ctx, tx, req.RequestID, line)
		if err != nil {
			h.Log.WithError(err).Error("add details: insert failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
		}
		consumed, err := h.Packages.DeductCreditTx(ctx, tx, customerID)
		if err != nil {
			h.Log.WithError(err).Error("add details: credit deduction failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
		}
		source := "billed"
		if consumed {
			source = "package"
			desc := fmt.Sprintf("request #%d: %s", req.RequestID, line.ItemName)
			if err := h.Packages.InsertUsageTx(ctx, tx, customerID, req.RequestID, detailID, desc); err != nil {
				h.Log.WithError(err).Error("add details: usage history failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
			}
		}
		results = append(results, detailResult{DetailID: detailID, ItemName: line.ItemName,
			CreditUsed: consumed, CreditSource: source})
	}

	if err := tx.Commit(); err != nil {
		h.Log.WithError(err).Error("add details: commit failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	committed = true
	return c.JSON(http.StatusCreated, echo.Map{"requestId": req.RequestID, "lines": results})
}

// Complete handles POST /v1/service/complete. The service record
// upsert and the request status change share one transaction so the
// two never diverge. Completing an already completed request is a
// no-op that still reports success.
func (h *ServiceHandler) Complete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req completeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.RequestID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "requestId required"})
	}

	ctx := c.Request().Context()
	tx, err := h.Services.DB().BeginTx(ctx, nil)
	if err != nil {
		h.Log.WithError(err).Error("complete service: begin tx failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Requests.SetCompletedTx(ctx, tx, req.RequestID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		h.Log.WithError(err).Error("complete service: status update failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	if err := h.Services.CompleteTx(ctx, tx, req.RequestID, userID); err != nil {
		h.Log.WithError(err).Error("complete service: record upsert failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	if err := tx.Commit(); err != nil {
		h.Log.WithError(err).Error("complete service: commit failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"message": "service completed", "requestId": req.RequestID})
}

// Report handles GET /v1/service/pdf/:id. Renders the request with
// its detail lines as a downloadable PDF. A request with no detail
// lines still produces a report with an empty table.
func (h *ServiceHandler) Report(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	ctx := c.Request().Context()

	req, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		h.Log.WithError(err).Error("report: request lookup failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	customer, err := h.Customers.GetByID(ctx, req.CustomerID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.Log.WithError(err).Error("report: customer lookup failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	details, err := h.Services.DetailsByRequest(ctx, id)
	if err != nil {
		h.Log.WithError(err).Error("report: detail lookup failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	lines := make([]report.Line, 0, len(details))
	for _, d := range details {
		lines = append(lines, report.Line{ItemName: d.ItemName, Quantity: d.Quantity, UnitPrice: d.UnitPrice})
	}
	pdf, err := report.Build(report.RequestInfo{
		ID:            req.ID,
		CustomerTitle: customer.Title,
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		CreatedAt:     req.CreatedAt,
	}, lines)
	if err != nil {
		h.Log.WithError(err).Error("report: render failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="service_report_request%d.pdf"`, id))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
