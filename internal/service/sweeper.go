package service

import (
	"context"
	"log"
	"time"

	"github.com/havenbay/booking-engine/internal/repository"
)

const sweepBatchSize = 200

// Sweeper reclaims lapsed holds and expires unused tickets. Every transition
// it applies is the same conditional state change used by manual actions, so
// multiple sweeper instances (or a sweep racing a confirm) are safe: the loser
// of each flip is a no-op.
type Sweeper struct {
	bookingRepo repository.BookingRepository
	slotRepo    repository.SlotRepository
	ticketRepo  repository.TicketRepository
	bookingSvc  BookingService
	lockSvc     LockService
	interval    time.Duration
}

func NewSweeper(
	bookingRepo repository.BookingRepository,
	slotRepo repository.SlotRepository,
	ticketRepo repository.TicketRepository,
	bookingSvc BookingService,
	lockSvc LockService,
	interval time.Duration,
) *Sweeper {
	return &Sweeper{
		bookingRepo: bookingRepo,
		slotRepo:    slotRepo,
		ticketRepo:  ticketRepo,
		bookingSvc:  bookingSvc,
		lockSvc:     lockSvc,
		interval:    interval,
	}
}

// Start runs sweep passes until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		log.Printf("[Sweeper] running every %s", s.interval)
		for {
			select {
			case <-ctx.Done():
				log.Println("[Sweeper] stopped")
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce performs a single sweep pass and returns how many bookings were
// expired and how many tickets were marked expired.
func (s *Sweeper) RunOnce(ctx context.Context) (int, int64) {
	now := time.Now().UTC()

	expired := 0
	bookings, err := s.bookingRepo.FindExpiredPending(ctx, now, sweepBatchSize)
	if err != nil {
		log.Printf("[Sweeper] scan expired pending: %v", err)
	} else {
		for _, b := range bookings {
			if err := s.bookingSvc.ExpireBooking(ctx, b.ID); err != nil {
				log.Printf("[Sweeper] expire booking %s: %v", b.Reference, err)
				continue
			}
			expired++
		}
	}

	// Holds with no surviving booking (crash between acquire and persist).
	locks, err := s.slotRepo.FindExpiredHeldLocks(ctx, now, sweepBatchSize)
	if err != nil {
		log.Printf("[Sweeper] scan expired locks: %v", err)
	} else {
		for _, l := range locks {
			if err := s.lockSvc.Release(ctx, l.ID); err != nil {
				log.Printf("[Sweeper] release lock %s: %v", l.ID, err)
			}
		}
	}

	expiredTickets, err := s.ticketRepo.ExpireBefore(ctx, now)
	if err != nil {
		log.Printf("[Sweeper] expire tickets: %v", err)
	}

	if expired > 0 || expiredTickets > 0 {
		log.Printf("[Sweeper] expired %d bookings, %d tickets", expired, expiredTickets)
	}
	return expired, expiredTickets
}
