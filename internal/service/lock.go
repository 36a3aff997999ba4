package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/havenbay/booking-engine/internal/models"
	"github.com/havenbay/booking-engine/internal/repository"
	"github.com/havenbay/booking-engine/pkg/cache"
	"gorm.io/gorm"
)

// LockService manages the time-bounded capacity holds taken during checkout.
// Acquire is the only path that grows reserved capacity; Commit and Release
// are idempotent because the lock row's own status transition decides whether
// capacity moves, and that transition can only happen once.
type LockService interface {
	Acquire(ctx context.Context, resourceID string, date time.Time, timeslot string, quantity int, holdDuration time.Duration) (*models.ReservationLock, error)
	Extend(ctx context.Context, lockID string, additional time.Duration) (*models.ReservationLock, error)
	Commit(ctx context.Context, lockID string) error
	Release(ctx context.Context, lockID string) error
}

type lockService struct {
	slotRepo repository.SlotRepository
	cache    *cache.Cache
}

func NewLockService(slotRepo repository.SlotRepository, c *cache.Cache) LockService {
	return &lockService{slotRepo: slotRepo, cache: c}
}

func (s *lockService) Acquire(ctx context.Context, resourceID string, date time.Time, timeslot string, quantity int, holdDuration time.Duration) (*models.ReservationLock, error) {
	slot, err := s.slotRepo.FindBySlotKey(ctx, resourceID, date, timeslot)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	switch {
	case !slot.IsActive:
		return nil, ErrSlotInactive
	case quantity < slot.MinBooking:
		return nil, ErrBelowMinimum
	case quantity > slot.MaxBooking:
		return nil, ErrAboveMaximum
	case slot.CutoffHours > 0 && now.Add(time.Duration(slot.CutoffHours)*time.Hour).After(slotStartTime(slot.Date, slot.Timeslot)):
		return nil, ErrWithinCutoffWindow
	}

	lock := &models.ReservationLock{
		ID:          uuid.NewString(),
		SlotID:      slot.ID,
		Quantity:    quantity,
		Status:      models.LockHeld,
		LockedUntil: now.Add(holdDuration),
	}

	err = s.slotRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Single conditional update: check available >= quantity and claim
		// in one statement, so concurrent acquirers can never jointly
		// exceed total capacity.
		ok, err := s.slotRepo.Reserve(ctx, tx, slot.ID, quantity)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientCapacity
		}
		return s.slotRepo.CreateLock(ctx, tx, lock)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Delete(ctx, slotCacheKey(resourceID, date, timeslot))
	return lock, nil
}

func (s *lockService) Extend(ctx context.Context, lockID string, additional time.Duration) (*models.ReservationLock, error) {
	lock, err := s.slotRepo.FindLock(ctx, lockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLockNotFound
		}
		return nil, err
	}
	if lock.Status != models.LockHeld || lock.Expired(time.Now().UTC()) {
		return nil, ErrLockExpired
	}

	until := lock.LockedUntil.Add(additional)
	ok, err := s.slotRepo.ExtendLock(ctx, s.slotRepo.GetDB(), lockID, until)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race against expiry or release between read and update.
		return nil, ErrLockExpired
	}
	lock.LockedUntil = until
	return lock, nil
}

func (s *lockService) Commit(ctx context.Context, lockID string) error {
	return s.finish(ctx, lockID, models.LockCommitted)
}

func (s *lockService) Release(ctx context.Context, lockID string) error {
	return s.finish(ctx, lockID, models.LockReleased)
}

// finish moves a held lock to a terminal status and applies the capacity
// effect exactly once. Finishing an already-finished lock is a no-op.
func (s *lockService) finish(ctx context.Context, lockID string, to models.LockStatus) error {
	lock, err := s.slotRepo.FindLock(ctx, lockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLockNotFound
		}
		return err
	}

	err = s.slotRepo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.slotRepo.TransitionLock(ctx, tx, lockID, models.LockHeld, to)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		if to == models.LockCommitted {
			return s.slotRepo.MoveReservedToBooked(ctx, tx, lock.SlotID, lock.Quantity)
		}
		return s.slotRepo.ReleaseReserved(ctx, tx, lock.SlotID, lock.Quantity)
	})
	if err != nil {
		return err
	}

	if slot, serr := s.slotRepo.FindByID(ctx, lock.SlotID); serr == nil {
		s.cache.Delete(ctx, slotCacheKey(slot.ResourceID, slot.Date, slot.Timeslot))
	}
	return nil
}
