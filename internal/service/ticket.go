package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/havenbay/booking-engine/internal/models"
	"github.com/havenbay/booking-engine/internal/qr"
	"github.com/havenbay/booking-engine/internal/repository"
	"github.com/havenbay/booking-engine/pkg/rabbitmq"
	"gorm.io/gorm"
)

type TicketService interface {
	// IssueTickets creates one ticket per booked unit inside the caller's
	// transaction (it runs as part of booking confirmation).
	IssueTickets(ctx context.Context, tx *gorm.DB, booking *models.Booking) ([]*models.Ticket, error)
	ValidateTicket(ctx context.Context, qrPayload, validatedBy, location string) (*models.Ticket, error)
	TransferTicket(ctx context.Context, ticketNumber, holderName, holderEmail string) (*models.Ticket, error)
	// CancelBookingTickets cascades a booking cancellation to its unvalidated
	// tickets inside the caller's transaction.
	CancelBookingTickets(ctx context.Context, tx *gorm.DB, bookingID uint) (int64, error)
}

type ticketService struct {
	ticketRepo repository.TicketRepository
	slotRepo   repository.SlotRepository
	signer     *qr.Signer
	publisher  *rabbitmq.Publisher
	prefix     string
}

func NewTicketService(ticketRepo repository.TicketRepository, slotRepo repository.SlotRepository, signer *qr.Signer, publisher *rabbitmq.Publisher, prefix string) TicketService {
	return &ticketService{
		ticketRepo: ticketRepo,
		slotRepo:   slotRepo,
		signer:     signer,
		publisher:  publisher,
		prefix:     prefix,
	}
}

// TicketsIssuedEvent is consumed downstream by delivery (email, wallet pass).
type TicketsIssuedEvent struct {
	BookingReference string            `json:"booking_reference"`
	GuestEmail       string            `json:"guest_email"`
	Tickets          []IssuedTicketRef `json:"tickets"`
}

type IssuedTicketRef struct {
	TicketNumber string `json:"ticket_number"`
	QRCodeData   string `json:"qr_code_data"`
	HolderName   string `json:"holder_name"`
	HolderEmail  string `json:"holder_email"`
}

type TicketTransferredEvent struct {
	TicketNumber   string `json:"ticket_number"`
	HolderName     string `json:"holder_name"`
	HolderEmail    string `json:"holder_email"`
	OriginalHolder string `json:"original_holder"`
}

func (s *ticketService) IssueTickets(ctx context.Context, tx *gorm.DB, booking *models.Booking) ([]*models.Ticket, error) {
	slot, err := s.slotRepo.FindByID(ctx, booking.SlotID)
	if err != nil {
		return nil, err
	}

	year := time.Now().UTC().Year()
	first, err := s.ticketRepo.NextSequence(ctx, tx, year, booking.Quantity)
	if err != nil {
		return nil, err
	}

	validFrom, validUntil := validityWindow(booking.Date, booking.Timeslot, slot.ValidityDays)

	tickets := make([]*models.Ticket, 0, booking.Quantity)
	for i := 0; i < booking.Quantity; i++ {
		number := fmt.Sprintf("%s-%d-%06d", s.prefix, year, first+uint(i))
		payload, err := s.signer.Sign(number, booking.Reference)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, &models.Ticket{
			TicketNumber: number,
			BookingID:    booking.ID,
			HolderName:   booking.GuestName,
			HolderEmail:  booking.GuestEmail,
			Timeslot:     booking.Timeslot,
			ValidFrom:    validFrom,
			ValidUntil:   validUntil,
			QRCodeData:   payload,
			Status:       models.TicketActive,
		})
	}

	if err := s.ticketRepo.CreateBatch(ctx, tx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *ticketService) ValidateTicket(ctx context.Context, qrPayload, validatedBy, location string) (*models.Ticket, error) {
	claims, err := s.signer.Verify(qrPayload)
	if err != nil {
		return nil, ErrInvalidQRCode
	}

	ticket, err := s.ticketRepo.FindByNumber(ctx, claims.TicketNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	won, err := s.ticketRepo.MarkUsed(ctx, ticket.ID, now, validatedBy, location)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the conditional update. Re-read once to name the reason.
		fresh, ferr := s.ticketRepo.FindByNumber(ctx, claims.TicketNumber)
		if ferr != nil {
			return nil, ferr
		}
		switch {
		case fresh.Status == models.TicketUsed || fresh.IsValidated():
			return nil, ErrAlreadyValidated
		case !fresh.WithinValidityWindow(now):
			return nil, ErrOutsideValidityWindow
		default:
			return nil, ErrTicketNotActive
		}
	}

	ticket.Status = models.TicketUsed
	ticket.ValidatedAt = &now
	ticket.ValidatedBy = &validatedBy
	ticket.ValidationLocation = &location
	return ticket, nil
}

func (s *ticketService) TransferTicket(ctx context.Context, ticketNumber, holderName, holderEmail string) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.FindByNumber(ctx, ticketNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	ok, err := s.ticketRepo.Transfer(ctx, ticket.ID, holderName, holderEmail, ticket.HolderName)
	if err != nil {
		return nil, err
	}
	if !ok {
		fresh, ferr := s.ticketRepo.FindByNumber(ctx, ticketNumber)
		if ferr != nil {
			return nil, ferr
		}
		switch {
		case fresh.IsTransferred:
			return nil, ErrAlreadyTransferred
		case fresh.IsValidated():
			return nil, ErrAlreadyValidated
		default:
			return nil, ErrTicketNotActive
		}
	}

	original := ticket.HolderName
	ticket.HolderName = holderName
	ticket.HolderEmail = holderEmail
	ticket.IsTransferred = true
	ticket.OriginalHolder = &original
	ticket.WalletPassRef = nil

	s.publish("ticket.transferred", TicketTransferredEvent{
		TicketNumber:   ticket.TicketNumber,
		HolderName:     holderName,
		HolderEmail:    holderEmail,
		OriginalHolder: original,
	})
	return ticket, nil
}

func (s *ticketService) CancelBookingTickets(ctx context.Context, tx *gorm.DB, bookingID uint) (int64, error) {
	return s.ticketRepo.CancelByBooking(ctx, tx, bookingID, models.TicketCancelled)
}

func (s *ticketService) publish(routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, payload); err != nil {
		log.Printf("[TicketService] publish %s: %v", routingKey, err)
	}
}

// validityWindow derives a ticket's admission window. Timeslotted products
// are valid for the slot itself; whole-day products for the booking date;
// multi-day products extend validUntil by validityDays.
func validityWindow(date time.Time, timeslot string, validityDays int) (time.Time, time.Time) {
	from := slotStartTime(date, timeslot)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	until := day.Add(24*time.Hour - time.Second)
	if len(timeslot) == len("15:04-15:04") {
		if t, err := time.Parse("15:04", timeslot[len("15:04-"):]); err == nil {
			until = day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
		}
	}
	if validityDays > 0 {
		until = day.AddDate(0, 0, validityDays).Add(24*time.Hour - time.Second)
	}
	return from, until
}
