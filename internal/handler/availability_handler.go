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

type AvailabilityHandler struct {
	svc service.AvailabilityService
}

func NewAvailabilityHandler(svc service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc}
}

func (h *AvailabilityHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/availability")
	g.GET("/:resource", h.GetAvailability)
	g.GET("/:resource/range", h.GetAvailabilityRange)
	g.PUT("/:resource", h.UpsertSlot)
}

func (h *AvailabilityHandler) GetAvailability(c echo.Context) error {
	resourceID := c.Param("resource")
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required (YYYY-MM-DD)")
	}

	slot, err := h.svc.GetAvailability(c.Request().Context(), resourceID, date, c.QueryParam("timeslot"))
	if err != nil {
		if errors.Is(err, service.ErrSlotNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.ToAvailabilityResponse(slot))
}

func (h *AvailabilityHandler) GetAvailabilityRange(c echo.Context) error {
	resourceID := c.Param("resource")
	start, err := time.Parse("2006-01-02", c.QueryParam("start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start is required (YYYY-MM-DD)")
	}
	end, err := time.Parse("2006-01-02", c.QueryParam("end"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end is required (YYYY-MM-DD)")
	}
	if end.Before(start) {
		return echo.NewHTTPError(http.StatusBadRequest, "end must not be before start")
	}

	slots, err := h.svc.GetAvailabilityRange(c.Request().Context(), resourceID, start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	items := make([]dto.AvailabilityResponse, 0, len(slots))
	for i := range slots {
		items = append(items, dto.ToAvailabilityResponse(&slots[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}

// UpsertSlot is the partner/admin inventory-sync entry point.
func (h *AvailabilityHandler) UpsertSlot(c echo.Context) error {
	resourceID := c.Param("resource")

	var req dto.UpsertSlotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required (YYYY-MM-DD)")
	}
	if req.TotalCapacity < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "total_capacity must be >= 0")
	}

	multiplier := req.DynamicPriceMultiplier
	if multiplier == 0 {
		multiplier = 1
	}
	minBooking := req.MinBooking
	if minBooking == 0 {
		minBooking = 1
	}
	maxBooking := req.MaxBooking
	if maxBooking == 0 {
		maxBooking = 10
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	slot := &models.AvailabilitySlot{
		ResourceID:             resourceID,
		Date:                   date,
		Timeslot:               req.Timeslot,
		TotalCapacity:          req.TotalCapacity,
		BasePrice:              req.BasePrice,
		DynamicPriceMultiplier: multiplier,
		MinBooking:             minBooking,
		MaxBooking:             maxBooking,
		CutoffHours:            req.CutoffHours,
		ValidityDays:           req.ValidityDays,
		IsActive:               active,
	}
	if err := h.svc.UpsertSlot(c.Request().Context(), slot); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.ToAvailabilityResponse(slot))
}
