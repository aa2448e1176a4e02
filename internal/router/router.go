// Package router wires HTTP routes to their handlers and applies the
// authentication, role and caching middleware per route group.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/serviceops/backoffice/internal/config"
	"github.com/serviceops/backoffice/internal/handler"
	"github.com/serviceops/backoffice/internal/middleware"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Auth     *handler.AuthHandler
	Customer *handler.CustomerHandler
	Request  *handler.RequestHandler
	Service  *handler.ServiceHandler
	Package  *handler.PackageHandler
	Product  *handler.ProductHandler
}

// Register sets up the full route table. Unauthenticated routes are
// the health check and login; everything else sits behind JWT auth,
// with the admin group additionally role-gated. rdb may be nil, in
// which case caching and rate limiting pass requests straight through.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	ratelimit := middleware.NewRateLimit(config.LoadRateLimitConfig(), rdb)

	// Login is rate limited per client IP to slow down credential
	// guessing.
	e.POST("/v1/users/login", h.Auth.Login, ratelimit)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(cfg.JWTSecret))

	// Staff management. Creation is admin-only.
	auth.POST("/users", h.Auth.CreateUser, middleware.RequireRole("admin"))

	// Customers.
	auth.POST("/customers", h.Customer.Create, middleware.RequireRole("admin"))
	auth.GET("/customers", h.Customer.List, cache)
	auth.GET("/customers/:id", h.Customer.Get)
	auth.PUT("/customers/:id", h.Customer.Update)
	auth.PATCH("/customers/:id/deactivate", h.Customer.Deactivate, middleware.RequireRole("admin"))
	auth.GET("/customers/:id/usage", h.Customer.Usage)

	// Service requests.
	auth.POST("/requests", h.Request.Create)
	auth.GET("/requests", h.Request.List, cache)
	auth.GET("/requests/:id", h.Request.Get)
	auth.PUT("/requests/:id", h.Request.Update)
	auth.DELETE("/requests/:id", h.Request.Delete, middleware.RequireRole("admin", "technical"))
	auth.POST("/requests/status", h.Request.ChangeStatus)
	auth.PATCH("/requests/:id/approve", h.Request.Approve, middleware.RequireRole("admin", "technical"))

	// Service work on a request.
	auth.POST("/service/details", h.Service.AddDetails)
	auth.POST("/service/complete", h.Service.Complete)
	auth.GET("/service/pdf/:id", h.Service.Report, middleware.RequireRole("admin", "technical"))

	// Package catalog. Definition management is admin-only; the
	// partial-update route lives outside the admin group for
	// compatibility but carries the same role gate.
	auth.PUT("/packages/:id", h.Package.Patch, middleware.RequireRole("admin"))

	admin := auth.Group("/admin", middleware.RequireRole("admin"))
	admin.GET("/packages", h.Package.List, cache)
	admin.POST("/packages", h.Package.Create)
	admin.PUT("/packages/:id", h.Package.Update)
	admin.PATCH("/packages/:id/deactivate", h.Package.Deactivate)
	admin.POST("/packages/assign", h.Package.Assign)

	// Product tracker. Mutations are admin-only, listings are open to
	// all staff.
	auth.POST("/products", h.Product.Create, middleware.RequireRole("admin"))
	auth.GET("/products/customer/:id", h.Product.ListByCustomer, cache)
	auth.GET("/products/customer/:id/expiring", h.Product.ListExpiring)
	auth.POST("/products/import", h.Product.Import, middleware.RequireRole("admin"))
	auth.POST("/products/notification-sweep", h.Product.NotificationSweep, middleware.RequireRole("admin"))
}
