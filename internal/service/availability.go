package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/havenbay/booking-engine/internal/models"
	"github.com/havenbay/booking-engine/internal/repository"
	"github.com/havenbay/booking-engine/pkg/cache"
	"gorm.io/gorm"
)

// AvailabilityService is the read side of the ledger plus the inventory-sync
// entry point. All capacity mutation goes through LockService and
// BookingService; this service never touches booked/reserved counters.
type AvailabilityService interface {
	GetAvailability(ctx context.Context, resourceID string, date time.Time, timeslot string) (*models.AvailabilitySlot, error)
	GetAvailabilityRange(ctx context.Context, resourceID string, start, end time.Time) ([]models.AvailabilitySlot, error)
	UpsertSlot(ctx context.Context, slot *models.AvailabilitySlot) error
}

type availabilityService struct {
	slotRepo repository.SlotRepository
	cache    *cache.Cache
}

func NewAvailabilityService(slotRepo repository.SlotRepository, c *cache.Cache) AvailabilityService {
	return &availabilityService{slotRepo: slotRepo, cache: c}
}

func slotCacheKey(resourceID string, date time.Time, timeslot string) string {
	return fmt.Sprintf("availability:%s:%s:%s", resourceID, date.Format("2006-01-02"), timeslot)
}

func (s *availabilityService) GetAvailability(ctx context.Context, resourceID string, date time.Time, timeslot string) (*models.AvailabilitySlot, error) {
	key := slotCacheKey(resourceID, date, timeslot)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var slot models.AvailabilitySlot
		if err := json.Unmarshal(raw, &slot); err == nil {
			return &slot, nil
		}
	}

	slot, err := s.slotRepo.FindBySlotKey(ctx, resourceID, date, timeslot)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	if raw, err := json.Marshal(slot); err == nil {
		s.cache.Set(ctx, key, raw)
	}
	return slot, nil
}

func (s *availabilityService) GetAvailabilityRange(ctx context.Context, resourceID string, start, end time.Time) ([]models.AvailabilitySlot, error) {
	return s.slotRepo.FindRange(ctx, resourceID, start, end)
}

func (s *availabilityService) UpsertSlot(ctx context.Context, slot *models.AvailabilitySlot) error {
	if err := s.slotRepo.Upsert(ctx, slot); err != nil {
		return err
	}
	s.cache.Delete(ctx, slotCacheKey(slot.ResourceID, slot.Date, slot.Timeslot))
	return nil
}

// slotStartTime resolves when a slot's service begins: the start of its
// timeslot ("10:30" or "10:30-12:00") on the slot date, or midnight for
// whole-day products. Cutoff checks count back from this moment.
func slotStartTime(date time.Time, timeslot string) time.Time {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if timeslot == "" {
		return day
	}
	start := timeslot
	if idx := len("15:04"); len(start) > idx {
		start = start[:idx]
	}
	if t, err := time.Parse("15:04", start); err == nil {
		return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	}
	return day
}
