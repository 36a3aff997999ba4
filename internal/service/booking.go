package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/havenbay/booking-engine/internal/models"
	"github.com/havenbay/booking-engine/internal/repository"
	"github.com/havenbay/booking-engine/pkg/cache"
	"github.com/havenbay/booking-engine/pkg/rabbitmq"
	"gorm.io/gorm"
)

// BookingService drives the booking lifecycle. Every status change goes
// through the transition table plus a conditional update keyed on the prior
// status, so of any concurrent confirm/cancel/expire callers exactly one wins.
type BookingService interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, reference, paymentRef string) (*models.Booking, error)
	CancelBooking(ctx context.Context, reference, actor, reason string) (*models.Booking, error)
	ExpireBooking(ctx context.Context, bookingID uint) error
	CompleteBooking(ctx context.Context, reference string) (*models.Booking, error)
	MarkNoShow(ctx context.Context, reference string) (*models.Booking, error)
	ExtendHold(ctx context.Context, reference string, additional time.Duration) (*models.Booking, error)
	GetBooking(ctx context.Context, reference string) (*models.Booking, error)
}

type CreateBookingInput struct {
	ResourceID string
	Date       time.Time
	Timeslot   string

	Adults   int
	Children int
	Infants  int

	GuestName  string
	GuestEmail string
	GuestPhone string

	Taxes    float64
	Fees     float64
	Discount float64

	RefundPolicy            models.RefundPolicy
	PartialRefundPercentage int
}

type BookingConfirmedEvent struct {
	Reference  string  `json:"reference"`
	PaymentRef string  `json:"payment_ref"`
	TotalPrice float64 `json:"total_price"`
}

type BookingCancelledEvent struct {
	Reference    string  `json:"reference"`
	Actor        string  `json:"actor"`
	Reason       string  `json:"reason"`
	RefundAmount float64 `json:"refund_amount"`
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	slotRepo    repository.SlotRepository
	lockSvc     LockService
	ticketSvc   TicketService
	publisher   *rabbitmq.Publisher
	cache       *cache.Cache

	prefix                string
	holdDuration          time.Duration
	releaseBookedOnCancel bool
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	slotRepo repository.SlotRepository,
	lockSvc LockService,
	ticketSvc TicketService,
	publisher *rabbitmq.Publisher,
	c *cache.Cache,
	prefix string,
	holdDuration time.Duration,
	releaseBookedOnCancel bool,
) BookingService {
	return &bookingService{
		bookingRepo:           bookingRepo,
		slotRepo:              slotRepo,
		lockSvc:               lockSvc,
		ticketSvc:             ticketSvc,
		publisher:             publisher,
		cache:                 c,
		prefix:                prefix,
		holdDuration:          holdDuration,
		releaseBookedOnCancel: releaseBookedOnCancel,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	quantity := input.Adults + input.Children + input.Infants
	if quantity <= 0 {
		return nil, ErrBelowMinimum
	}

	slot, err := s.slotRepo.FindBySlotKey(ctx, input.ResourceID, input.Date, input.Timeslot)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	// 1. Hold capacity first. A rejection here is surfaced unchanged and
	// nothing is persisted.
	lock, err := s.lockSvc.Acquire(ctx, input.ResourceID, input.Date, input.Timeslot, quantity, s.holdDuration)
	if err != nil {
		return nil, err
	}

	base := round2(slot.FinalPrice() * float64(quantity))
	total := round2(base + input.Taxes + input.Fees - input.Discount)
	deadline := slotStartTime(slot.Date, slot.Timeslot).Add(-24 * time.Hour)

	policy := input.RefundPolicy
	if policy == "" {
		policy = models.RefundFull
	}

	booking := &models.Booking{
		Reference:               s.newReference(),
		ResourceID:              input.ResourceID,
		SlotID:                  slot.ID,
		Date:                    slot.Date,
		Timeslot:                slot.Timeslot,
		Adults:                  input.Adults,
		Children:                input.Children,
		Infants:                 input.Infants,
		Quantity:                quantity,
		BasePrice:               base,
		Taxes:                   input.Taxes,
		Fees:                    input.Fees,
		Discount:                input.Discount,
		TotalPrice:              total,
		Status:                  models.StatusPending,
		PaymentStatus:           models.PaymentUnpaid,
		GuestName:               input.GuestName,
		GuestEmail:              input.GuestEmail,
		GuestPhone:              input.GuestPhone,
		LockID:                  &lock.ID,
		LockedUntil:             &lock.LockedUntil,
		RefundPolicy:            policy,
		PartialRefundPercentage: input.PartialRefundPercentage,
		CancellationDeadline:    &deadline,
	}

	// 2. Persist the pending booking. If that fails, the hold must not leak:
	// release is the compensating action.
	if err := s.bookingRepo.Create(ctx, s.bookingRepo.GetDB(), booking); err != nil {
		if relErr := s.lockSvc.Release(ctx, lock.ID); relErr != nil {
			log.Printf("[BookingService] release lock %s after failed create: %v", lock.ID, relErr)
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ConfirmBooking(ctx context.Context, reference, paymentRef string) (*models.Booking, error) {
	booking, err := s.findByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if booking.Status == models.StatusPending && booking.LockExpired(now) {
		// The hold lapsed before payment arrived; the booking dies instead
		// of confirming, and capacity goes back to the pool.
		if err := s.ExpireBooking(ctx, booking.ID); err != nil {
			return nil, err
		}
		return nil, ErrLockExpired
	}
	if !models.CanTransition(booking.Status, models.StatusConfirmed) {
		return nil, ErrInvalidTransition
	}

	var tickets []*models.Ticket
	err = s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. The booking row's own pending->confirmed flip is the
		// serialization point against concurrent cancel/expire.
		won, err := s.bookingRepo.TransitionStatus(ctx, tx, booking.ID, models.StatusPending, models.StatusConfirmed, map[string]interface{}{
			"payment_status": models.PaymentPaid,
			"payment_ref":    paymentRef,
		})
		if err != nil {
			return err
		}
		if !won {
			return ErrInvalidTransition
		}

		// 2. Reserved capacity becomes sold. The lock CAS keeps this
		// exactly-once even if confirm is retried.
		if booking.LockID != nil {
			committed, err := s.slotRepo.TransitionLock(ctx, tx, *booking.LockID, models.LockHeld, models.LockCommitted)
			if err != nil {
				return err
			}
			if committed {
				if err := s.slotRepo.MoveReservedToBooked(ctx, tx, booking.SlotID, booking.Quantity); err != nil {
					return err
				}
			}
		}

		// 3. One ticket per unit, inside the same transaction.
		tickets, err = s.ticketSvc.IssueTickets(ctx, tx, booking)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// Lost the race. If the sweeper got there first, name it.
			if fresh, ferr := s.bookingRepo.FindByID(ctx, booking.ID); ferr == nil && fresh.Status == models.StatusExpired {
				return nil, ErrLockExpired
			}
		}
		return nil, err
	}

	booking.Status = models.StatusConfirmed
	booking.PaymentStatus = models.PaymentPaid
	booking.PaymentRef = &paymentRef
	for _, t := range tickets {
		booking.Tickets = append(booking.Tickets, *t)
	}

	s.invalidateSlot(ctx, booking)
	s.publish("booking.confirmed", BookingConfirmedEvent{
		Reference:  booking.Reference,
		PaymentRef: paymentRef,
		TotalPrice: booking.TotalPrice,
	})
	s.publishTicketsIssued(booking, tickets)
	return booking, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, reference, actor, reason string) (*models.Booking, error) {
	booking, err := s.findByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(booking.Status, models.StatusCancelled) {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	switch booking.Status {
	case models.StatusPending:
		err = s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			won, err := s.bookingRepo.TransitionStatus(ctx, tx, booking.ID, models.StatusPending, models.StatusCancelled, map[string]interface{}{
				"cancelled_at":  now,
				"cancel_reason": reason,
			})
			if err != nil {
				return err
			}
			if !won {
				return ErrInvalidTransition
			}
			return s.releaseLockTx(ctx, tx, booking)
		})
		if err != nil {
			return nil, err
		}
		booking.RefundAmount = nil

	case models.StatusConfirmed:
		if booking.CancellationDeadline != nil && now.After(*booking.CancellationDeadline) {
			return nil, ErrCancellationDeadlinePassed
		}
		refund := round2(booking.TotalPrice * float64(booking.RefundPercentage()) / 100)
		updates := map[string]interface{}{
			"cancelled_at":  now,
			"cancel_reason": reason,
			"refund_amount": refund,
		}
		if refund > 0 {
			updates["payment_status"] = models.PaymentRefunded
		}
		err = s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			won, err := s.bookingRepo.TransitionStatus(ctx, tx, booking.ID, models.StatusConfirmed, models.StatusCancelled, updates)
			if err != nil {
				return err
			}
			if !won {
				return ErrInvalidTransition
			}
			// Cascade: unvalidated tickets die with the booking; already
			// validated ones stay used.
			if _, err := s.ticketSvc.CancelBookingTickets(ctx, tx, booking.ID); err != nil {
				return err
			}
			if s.releaseBookedOnCancel {
				return s.slotRepo.ReleaseBooked(ctx, tx, booking.SlotID, booking.Quantity)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		booking.RefundAmount = &refund
		if refund > 0 {
			booking.PaymentStatus = models.PaymentRefunded
		}

	default:
		return nil, ErrInvalidTransition
	}

	booking.Status = models.StatusCancelled
	booking.CancelledAt = &now
	booking.CancelReason = &reason

	s.invalidateSlot(ctx, booking)
	refund := 0.0
	if booking.RefundAmount != nil {
		refund = *booking.RefundAmount
	}
	s.publish("booking.cancelled", BookingCancelledEvent{
		Reference:    booking.Reference,
		Actor:        actor,
		Reason:       reason,
		RefundAmount: refund,
	})
	return booking, nil
}

// ExpireBooking is the system-only transition used by the sweeper and by a
// confirm attempt that finds a lapsed hold. Safe to call any number of times:
// the pending->expired flip happens at most once.
func (s *bookingService) ExpireBooking(ctx context.Context, bookingID uint) error {
	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		return err
	}

	err = s.bookingRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.bookingRepo.TransitionStatus(ctx, tx, booking.ID, models.StatusPending, models.StatusExpired, map[string]interface{}{
			"cancel_reason": "LOCK_EXPIRED",
		})
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		return s.releaseLockTx(ctx, tx, booking)
	})
	if err != nil {
		return err
	}
	s.invalidateSlot(ctx, booking)
	return nil
}

func (s *bookingService) CompleteBooking(ctx context.Context, reference string) (*models.Booking, error) {
	return s.operatorTransition(ctx, reference, models.StatusCompleted)
}

func (s *bookingService) MarkNoShow(ctx context.Context, reference string) (*models.Booking, error) {
	return s.operatorTransition(ctx, reference, models.StatusNoShow)
}

func (s *bookingService) operatorTransition(ctx context.Context, reference string, to models.BookingStatus) (*models.Booking, error) {
	booking, err := s.findByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(booking.Status, to) {
		return nil, ErrInvalidTransition
	}
	won, err := s.bookingRepo.TransitionStatus(ctx, s.bookingRepo.GetDB(), booking.ID, booking.Status, to, nil)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrInvalidTransition
	}
	booking.Status = to
	return booking, nil
}

func (s *bookingService) ExtendHold(ctx context.Context, reference string, additional time.Duration) (*models.Booking, error) {
	booking, err := s.findByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusPending || booking.LockID == nil {
		return nil, ErrInvalidTransition
	}

	lock, err := s.lockSvc.Extend(ctx, *booking.LockID, additional)
	if err != nil {
		return nil, err
	}
	if err := s.bookingRepo.UpdateLockDeadline(ctx, s.bookingRepo.GetDB(), booking.ID, lock.LockedUntil); err != nil {
		return nil, err
	}
	booking.LockedUntil = &lock.LockedUntil
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, reference string) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByReferenceWithTickets(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

// releaseLockTx returns a pending booking's held capacity to the pool within
// the caller's transaction. The lock CAS makes it a no-op when the lock
// already finished.
func (s *bookingService) releaseLockTx(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	if booking.LockID == nil {
		return nil
	}
	released, err := s.slotRepo.TransitionLock(ctx, tx, *booking.LockID, models.LockHeld, models.LockReleased)
	if err != nil {
		return err
	}
	if !released {
		return nil
	}
	return s.slotRepo.ReleaseReserved(ctx, tx, booking.SlotID, booking.Quantity)
}

func (s *bookingService) findByReference(ctx context.Context, reference string) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) newReference() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s-B-%08X", s.prefix, time.Now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("%s-B-%s", s.prefix, strings.ToUpper(hex.EncodeToString(b)))
}

func (s *bookingService) invalidateSlot(ctx context.Context, booking *models.Booking) {
	s.cache.Delete(ctx, slotCacheKey(booking.ResourceID, booking.Date, booking.Timeslot))
}

func (s *bookingService) publish(routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, payload); err != nil {
		log.Printf("[BookingService] publish %s: %v", routingKey, err)
	}
}

func (s *bookingService) publishTicketsIssued(booking *models.Booking, tickets []*models.Ticket) {
	refs := make([]IssuedTicketRef, 0, len(tickets))
	for _, t := range tickets {
		refs = append(refs, IssuedTicketRef{
			TicketNumber: t.TicketNumber,
			QRCodeData:   t.QRCodeData,
			HolderName:   t.HolderName,
			HolderEmail:  t.HolderEmail,
		})
	}
	s.publish("tickets.issued", TicketsIssuedEvent{
		BookingReference: booking.Reference,
		GuestEmail:       booking.GuestEmail,
		Tickets:          refs,
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
