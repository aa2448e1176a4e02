package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/serviceops/backoffice/internal/model"
	"github.com/serviceops/backoffice/internal/queue"
	"github.com/serviceops/backoffice/internal/repository"
	queue_publisher "github.com/serviceops/backoffice/internal/service"
)

const (
	// expiringWindowDays bounds the customer-facing expiring-soon list.
	expiringWindowDays = 30
	// sweepWindowDays bounds the notification sweep.
	sweepWindowDays = 15
)

// ProductHandler covers the product tracker: manual creation, the
// per-customer listings, the bulk spreadsheet import and the
// expiry-notification sweep that feeds the message broker.
type ProductHandler struct {
	Products  *repository.ProductRepo
	Customers *repository.CustomerRepo
	Log       *logrus.Logger
	AMQPURL   string
}

func NewProductHandler(products *repository.ProductRepo, customers *repository.CustomerRepo, log *logrus.Logger, amqpURL string) *ProductHandler {
	if products == nil || customers == nil {
		panic("nil repository passed to NewProductHandler")
	}
	return &ProductHandler{Products: products, Customers: customers, Log: log, AMQPURL: amqpURL}
}

type productReq struct {
	CustomerID  uint64  `json:"customerId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	PurchasedAt string  `json:"purchasedAt"`
	ExpiresAt   string  `json:"expiresAt"`
	Cost        float64 `json:"cost"`
	SalePrice   float64 `json:"salePrice"`
}

type productResp struct {
	ID          uint64  `json:"id"`
	CustomerID  uint64  `json:"customerId"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	PurchasedAt string  `json:"purchasedAt"`
	ExpiresAt   string  `json:"expiresAt"`
	Cost        float64 `json:"cost"`
	SalePrice   float64 `json:"salePrice"`
	Profit      float64 `json:"profit"`
	Notified    bool    `json:"notified"`
}

const dateLayout = "2006-01-02"

func toProductResp(p model.Product) productResp {
	return productResp{ID: p.ID, CustomerID: p.CustomerID, Name: p.Name,
		Description: p.Description, PurchasedAt: p.PurchasedAt.Format(dateLayout),
		ExpiresAt: p.ExpiresAt.Format(dateLayout), Cost: p.Cost,
		SalePrice: p.SalePrice, Profit: p.SalePrice - p.Cost, Notified: p.Notified}
}

// parseDate accepts ISO dates plus the slash forms spreadsheets
// commonly emit.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, "02/01/2006", "1/2/06", "01-02-06", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Create handles POST /v1/products (admin).
func (h *ProductHandler) Create(c echo.Context) error {
	var req productReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.CustomerID == 0 || strings.TrimSpace(req.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customerId and name required"})
	}
	purchased, err := parseDate(req.PurchasedAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchasedAt"})
	}
	expires, err := parseDate(req.ExpiresAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid expiresAt"})
	}

	ctx := c.Request().Context()
	active, err := h.Customers.ActiveExists(ctx, req.CustomerID)
	if err != nil {
		h.Log.WithError(err).Error("create product: customer check failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	if !active {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": repository.ErrCustomerInactive.Error()})
	}

	id, err := h.Products.Create(ctx, model.Product{
		CustomerID: req.CustomerID, Name: strings.TrimSpace(req.Name), Description: req.Description,
		PurchasedAt: purchased, ExpiresAt: expires, Cost: req.Cost, SalePrice: req.SalePrice,
	})
	if err != nil {
		h.Log.WithError(err).Error("create product failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"productId": id})
}

// ListByCustomer handles GET /v1/products/customer/:id. Each entry
// carries the derived profit (sale price minus cost).
func (h *ProductHandler) ListByCustomer(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}
	products, err := h.Products.ListByCustomer(c.Request().Context(), id)
	if err != nil {
		h.Log.WithError(err).Error("list products failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

// ListExpiring handles GET /v1/products/customer/:id/expiring: the
// customer's products expiring within the next thirty days.
func (h *ProductHandler) ListExpiring(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
	}
	products, err := h.Products.ListExpiring(c.Request().Context(), id, expiringWindowDays)
	if err != nil {
		h.Log.WithError(err).Error("list expiring products failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResp(p))
	}
	return c.JSON(http.StatusOK, out)
}

// Import handles POST /v1/products/import (admin): a multipart xlsx
// upload in the "file" field. The sheet's first row is a header; data
// rows carry customer id, name, description, purchase date, expiry
// date, cost and sale price. Rows with an empty first cell are
// skipped, a malformed value anywhere aborts the upload, and the
// accepted rows are written in a single transaction so a failed
// import leaves nothing behind.
func (h *ProductHandler) Import(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable file"})
	}
	defer src.Close()

	ctx := c.Request().Context()
	wb, err := excelize.OpenReader(src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "not a valid xlsx file"})
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "workbook has no sheets"})
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "not a valid xlsx file"})
	}

	products := make([]model.Product, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			skipped++
			continue
		}
		p, err := parseProductRow(row)
		if err != nil {
			return c.JSON(http.StatusBadRequest,
				echo.Map{"error": fmt.Sprintf("row %d: %v", i+1, err)})
		}
		products = append(products, p)
	}

	tx, err := h.Products.DB().BeginTx(ctx, nil)
	if err != nil {
		h.Log.WithError(err).Error("import: begin tx failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Products.BulkInsertTx(ctx, tx, products); err != nil {
		h.Log.WithError(err).Error("import: bulk insert failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	if err := tx.Commit(); err != nil {
		h.Log.WithError(err).Error("import: commit failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}
	committed = true

	h.Log.WithFields(logrus.Fields{
		"imported": len(products), "skipped": skipped}).Info("product import completed")
	return c.JSON(http.StatusCreated, echo.Map{"imported": len(products), "skipped": skipped})
}

// parseProductRow maps one sheet row to a product. Expected cells:
// customer id, name, description, purchase date, expiry date, cost,
// sale price.
func parseProductRow(row []string) (model.Product, error) {
	var p model.Product
	if len(row) < 7 {
		return p, fmt.Errorf("expected 7 cells, got %d", len(row))
	}
	customerID, err := strconv.ParseUint(strings.TrimSpace(row[0]), 10, 64)
	if err != nil || customerID == 0 {
		return p, fmt.Errorf("customer id: invalid value %q", row[0])
	}
	purchased, err := parseDate(row[3])
	if err != nil {
		return p, fmt.Errorf("purchase date: %v", err)
	}
	expires, err := parseDate(row[4])
	if err != nil {
		return p, fmt.Errorf("expiry date: %v", err)
	}
	cost, err := parseMoney(row[5])
	if err != nil {
		return p, fmt.Errorf("cost: %v", err)
	}
	sale, err := parseMoney(row[6])
	if err != nil {
		return p, fmt.Errorf("sale price: %v", err)
	}
	p = model.Product{CustomerID: customerID, Name: strings.TrimSpace(row[1]),
		Description: strings.TrimSpace(row[2]), PurchasedAt: purchased,
		ExpiresAt: expires, Cost: cost, SalePrice: sale}
	return p, nil
}

// NotificationSweep handles POST /v1/products/notification-sweep
// (admin): finds unnotified products expiring within fifteen days,
// publishes one broker event per product and flips their notified
// flags in a single batched update. Publishing is best-effort; a
// broker failure is logged and the sweep continues. The response keys
// are fixed by the existing consumers of this endpoint.
func (h *ProductHandler) NotificationSweep(c echo.Context) error {
	ctx := c.Request().Context()
	products, err := h.Products.UnnotifiedExpiring(ctx, sweepWindowDays)
	if err != nil {
		h.Log.WithError(err).Error("sweep: query failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	sweptAt := time.Now().UTC().Format(time.RFC3339)
	titles := make(map[uint64]string)
	ids := make([]uint64, 0, len(products))
	for _, p := range products {
		title, ok := titles[p.CustomerID]
		if !ok {
			customer, err := h.Customers.GetByID(ctx, p.CustomerID)
			if err == nil {
				title = customer.Title
			} else if !errors.Is(err, repository.ErrNotFound) {
				h.Log.WithError(err).Error("sweep: customer lookup failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
			}
			titles[p.CustomerID] = title
		}
		event := queue.ProductExpiringEvent{
			ProductID:     p.ID,
			CustomerID:    p.CustomerID,
			CustomerTitle: title,
			ProductName:   p.Name,
			ExpiresAt:     p.ExpiresAt.Format(dateLayout),
			SweptAt:       sweptAt,
		}
		if err := queue_publisher.PublishProductExpiring(ctx, h.AMQPURL, event); err != nil {
			h.Log.WithError(err).WithField("product_id", p.ID).Warn("sweep: publish failed")
		}
		ids = append(ids, p.ID)
	}

	if err := h.Products.MarkNotified(ctx, ids); err != nil {
		h.Log.WithError(err).Error("sweep: mark notified failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	h.Log.WithField("count", len(ids)).Info("expiry sweep completed")
	return c.JSON(http.StatusOK, echo.Map{
		"bildirimSayisi": len(ids),
		"bildirilenIDler": ids,
	})
}
