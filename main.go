package main

import (
	"context"
	"log"
	"time"

	"github.com/havenbay/booking-engine/config"
	"github.com/havenbay/booking-engine/internal/consumer"
	"github.com/havenbay/booking-engine/internal/handler"
	"github.com/havenbay/booking-engine/internal/middleware"
	"github.com/havenbay/booking-engine/internal/qr"
	"github.com/havenbay/booking-engine/internal/repository"
	"github.com/havenbay/booking-engine/internal/service"
	"github.com/havenbay/booking-engine/pkg/cache"
	"github.com/havenbay/booking-engine/pkg/database"
	"github.com/havenbay/booking-engine/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// Availability read cache; nil when Redis is not configured.
	slotCache := cache.New(cfg.RedisAddr, 30*time.Second)
	defer slotCache.Close()

	// RabbitMQ publisher: booking lifecycle and ticket events for downstream
	// services (notifications, wallet passes, analytics).
	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Printf("RabbitMQ unavailable, events disabled: %v", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	// Repositories
	slotRepo := repository.NewSlotRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	ticketRepo := repository.NewTicketRepository(db)

	// Services
	signer := qr.NewSigner(cfg.QRSigningSecret)
	lockSvc := service.NewLockService(slotRepo, slotCache)
	availabilitySvc := service.NewAvailabilityService(slotRepo, slotCache)
	ticketSvc := service.NewTicketService(ticketRepo, slotRepo, signer, publisher, cfg.TicketPrefix)
	bookingSvc := service.NewBookingService(
		bookingRepo, slotRepo, lockSvc, ticketSvc,
		publisher, slotCache,
		cfg.TicketPrefix, cfg.HoldDuration, cfg.ReleaseBookedOnCancel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Expiry sweeper: reclaims lapsed holds and expires unused tickets.
	sweeper := service.NewSweeper(bookingRepo, slotRepo, ticketRepo, bookingSvc, lockSvc, cfg.SweepInterval)
	sweeper.Start(ctx)

	// RabbitMQ consumer: payment outcomes drive confirm/cancel.
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Printf("RabbitMQ consumer unavailable, payment events disabled: %v", err)
	} else {
		defer mqConsumer.Close()
		msgs, err := mqConsumer.Consume()
		if err != nil {
			log.Fatalf("failed to start consuming: %v", err)
		}
		consumer.NewPaymentConsumer(bookingSvc).Start(msgs)
	}

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "booking-engine"})
	})

	handler.NewAvailabilityHandler(availabilitySvc).RegisterRoutes(e)
	handler.NewBookingHandler(bookingSvc).RegisterRoutes(e)
	handler.NewTicketHandler(ticketSvc).RegisterRoutes(e)

	log.Printf("Booking Engine starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
