package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/serviceops/backoffice/internal/config"
	"github.com/serviceops/backoffice/internal/database"
	"github.com/serviceops/backoffice/internal/handler"
	"github.com/serviceops/backoffice/internal/queue"
	"github.com/serviceops/backoffice/internal/repository"
	"github.com/serviceops/backoffice/internal/router"
)

func main() {
	// .env is optional; in containers configuration comes from the
	// real environment.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	if cfg.Env == "dev" {
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, response cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	customers := repository.NewCustomerRepo(db)
	requests := repository.NewRequestRepo(db)
	services := repository.NewServiceRepo(db)
	packages := repository.NewPackageRepo(db)
	products := repository.NewProductRepo(db)

	h := router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, log),
		Customer: handler.NewCustomerHandler(customers, packages, log),
		Request:  handler.NewRequestHandler(requests, customers, log),
		Service:  handler.NewServiceHandler(requests, services, packages, customers, log),
		Package:  handler.NewPackageHandler(packages, customers, log),
		Product:  handler.NewProductHandler(products, customers, log, cfg.AMQPURL),
	}

	if cfg.AMQPURL != "" {
		go func() {
			if err := queue.StartExpiryConsumer(cfg.AMQPURL, log); err != nil {
				log.WithError(err).Error("expiry consumer stopped")
			}
		}()
	} else {
		log.Warn("RABBITMQ_URL not set, expiry notifications disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.Register(e, h, cfg, rdb)

	log.WithField("port", cfg.Port).Info("starting server")
	if err := e.Start(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
