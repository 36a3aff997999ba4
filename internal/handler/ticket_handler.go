package handler

import (
	"errors"
	"net/http"

	"github.com/havenbay/booking-engine/internal/dto"
	"github.com/havenbay/booking-engine/internal/service"
	"github.com/labstack/echo/v4"
)

type TicketHandler struct {
	svc service.TicketService
}

func NewTicketHandler(svc service.TicketService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

func (h *TicketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/tickets")
	g.POST("/validate", h.ValidateTicket)
	g.POST("/:number/transfer", h.TransferTicket)
}

// ValidateTicket is the gate-scan endpoint. A ticket losing the redemption
// race is a normal outcome for the scanner, so those come back as 200 with
// valid=false and a named reason rather than as errors.
func (h *TicketHandler) ValidateTicket(c echo.Context) error {
	var req dto.ValidateTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.QRCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "qr_code is required")
	}

	ticket, err := h.svc.ValidateTicket(c.Request().Context(), req.QRCode, req.ValidatedBy, req.Location)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidQRCode):
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, service.ErrTicketNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAlreadyValidated):
			return c.JSON(http.StatusOK, dto.ValidationResponse{Valid: false, Reason: "ALREADY_USED"})
		case errors.Is(err, service.ErrOutsideValidityWindow):
			return c.JSON(http.StatusOK, dto.ValidationResponse{Valid: false, Reason: "OUTSIDE_VALIDITY_WINDOW"})
		case errors.Is(err, service.ErrTicketNotActive):
			return c.JSON(http.StatusOK, dto.ValidationResponse{Valid: false, Reason: "TICKET_NOT_ACTIVE"})
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	resp := dto.ToTicketResponse(ticket)
	return c.JSON(http.StatusOK, dto.ValidationResponse{Valid: true, Ticket: &resp})
}

func (h *TicketHandler) TransferTicket(c echo.Context) error {
	var req dto.TransferTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.HolderName == "" || req.HolderEmail == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "holder_name and holder_email are required")
	}

	ticket, err := h.svc.TransferTicket(c.Request().Context(), c.Param("number"), req.HolderName, req.HolderEmail)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTicketNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAlreadyTransferred),
			errors.Is(err, service.ErrAlreadyValidated),
			errors.Is(err, service.ErrTicketNotActive):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket))
}
