package dto

import (
	"time"

	"github.com/havenbay/booking-engine/internal/models"
)

type AvailabilityResponse struct {
	ResourceID    string  `json:"resource_id"`
	Date          string  `json:"date"`
	Timeslot      string  `json:"timeslot,omitempty"`
	TotalCapacity int     `json:"total_capacity"`
	Available     int     `json:"available"`
	FinalPrice    float64 `json:"final_price"`
	IsSoldOut     bool    `json:"is_sold_out"`
	IsActive      bool    `json:"is_active"`
}

type BookingResponse struct {
	Reference     string               `json:"reference"`
	ResourceID    string               `json:"resource_id"`
	Date          string               `json:"date"`
	Timeslot      string               `json:"timeslot,omitempty"`
	Status        models.BookingStatus `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Quantity      int                  `json:"quantity"`
	TotalPrice    float64              `json:"total_price"`
	RefundAmount  *float64             `json:"refund_amount,omitempty"`
	GuestName     string               `json:"guest_name"`
	LockedUntil   *time.Time           `json:"locked_until,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	Tickets       []TicketResponse     `json:"tickets,omitempty"`
}

type TicketResponse struct {
	TicketNumber  string              `json:"ticket_number"`
	Status        models.TicketStatus `json:"status"`
	HolderName    string              `json:"holder_name"`
	ValidFrom     time.Time           `json:"valid_from"`
	ValidUntil    time.Time           `json:"valid_until"`
	QRCodeData    string              `json:"qr_code_data"`
	ValidatedAt   *time.Time          `json:"validated_at,omitempty"`
	IsTransferred bool                `json:"is_transferred"`
}

type ValidationResponse struct {
	Valid  bool            `json:"valid"`
	Reason string          `json:"reason,omitempty"`
	Ticket *TicketResponse `json:"ticket,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToAvailabilityResponse(s *models.AvailabilitySlot) AvailabilityResponse {
	return AvailabilityResponse{
		ResourceID:    s.ResourceID,
		Date:          s.Date.Format("2006-01-02"),
		Timeslot:      s.Timeslot,
		TotalCapacity: s.TotalCapacity,
		Available:     s.AvailableCapacity(),
		FinalPrice:    s.FinalPrice(),
		IsSoldOut:     s.IsSoldOut(),
		IsActive:      s.IsActive,
	}
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	resp := BookingResponse{
		Reference:     b.Reference,
		ResourceID:    b.ResourceID,
		Date:          b.Date.Format("2006-01-02"),
		Timeslot:      b.Timeslot,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		Quantity:      b.Quantity,
		TotalPrice:    b.TotalPrice,
		RefundAmount:  b.RefundAmount,
		GuestName:     b.GuestName,
		LockedUntil:   b.LockedUntil,
		CreatedAt:     b.CreatedAt,
	}
	for i := range b.Tickets {
		resp.Tickets = append(resp.Tickets, ToTicketResponse(&b.Tickets[i]))
	}
	return resp
}

func ToTicketResponse(t *models.Ticket) TicketResponse {
	return TicketResponse{
		TicketNumber:  t.TicketNumber,
		Status:        t.Status,
		HolderName:    t.HolderName,
		ValidFrom:     t.ValidFrom,
		ValidUntil:    t.ValidUntil,
		QRCodeData:    t.QRCodeData,
		ValidatedAt:   t.ValidatedAt,
		IsTransferred: t.IsTransferred,
	}
}
