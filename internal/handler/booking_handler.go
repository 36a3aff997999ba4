package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/havenbay/booking-engine/internal/dto"
	"github.com/havenbay/booking-engine/internal/models"
	"github.com/havenbay/booking-engine/internal/service"
	"github.com/labstack/echo/v4"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/bookings")
	g.POST("", h.CreateBooking)
	g.GET("/:ref", h.GetBooking)
	g.POST("/:ref/confirm", h.ConfirmBooking)
	g.POST("/:ref/cancel", h.CancelBooking)
	g.POST("/:ref/extend", h.ExtendHold)
	g.POST("/:ref/complete", h.CompleteBooking)
	g.POST("/:ref/no-show", h.MarkNoShow)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ResourceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "resource_id is required")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required (YYYY-MM-DD)")
	}
	if req.GuestName == "" || req.GuestEmail == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "guest_name and guest_email are required")
	}

	booking, err := h.svc.CreateBooking(c.Request().Context(), service.CreateBookingInput{
		ResourceID:              req.ResourceID,
		Date:                    date,
		Timeslot:                req.Timeslot,
		Adults:                  req.Adults,
		Children:                req.Children,
		Infants:                 req.Infants,
		GuestName:               req.GuestName,
		GuestEmail:              req.GuestEmail,
		GuestPhone:              req.GuestPhone,
		Taxes:                   req.Taxes,
		Fees:                    req.Fees,
		Discount:                req.Discount,
		RefundPolicy:            models.RefundPolicy(req.RefundPolicy),
		PartialRefundPercentage: req.PartialRefundPercentage,
	})
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	booking, err := h.svc.GetBooking(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	var req dto.ConfirmBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PaymentReference == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payment_reference is required")
	}

	booking, err := h.svc.ConfirmBooking(c.Request().Context(), c.Param("ref"), req.PaymentReference)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	var req dto.CancelBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor := req.Actor
	if actor == "" {
		actor = "guest"
	}

	booking, err := h.svc.CancelBooking(c.Request().Context(), c.Param("ref"), actor, req.Reason)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ExtendHold(c echo.Context) error {
	var req dto.ExtendHoldRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.AdditionalMinutes <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "additional_minutes must be positive")
	}

	booking, err := h.svc.ExtendHold(c.Request().Context(), c.Param("ref"), time.Duration(req.AdditionalMinutes)*time.Minute)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CompleteBooking(c echo.Context) error {
	booking, err := h.svc.CompleteBooking(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) MarkNoShow(c echo.Context) error {
	booking, err := h.svc.MarkNoShow(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

// bookingError maps service rejections to HTTP statuses. Capacity and state
// rejections are expected outcomes, not faults.
func bookingError(err error) error {
	switch {
	case errors.Is(err, service.ErrBookingNotFound), errors.Is(err, service.ErrSlotNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInsufficientCapacity),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrLockExpired),
		errors.Is(err, service.ErrCancellationDeadlinePassed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrBelowMinimum),
		errors.Is(err, service.ErrAboveMaximum),
		errors.Is(err, service.ErrWithinCutoffWindow),
		errors.Is(err, service.ErrSlotInactive),
		errors.Is(err, service.ErrLockNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
