package models

import (
	"math"
	"time"
)

// AvailabilitySlot is the capacity record for one resource on one date
// (optionally one timeslot). BookedCapacity and ReservedCapacity are owned by
// the engine and only move through the slot repository's atomic updates;
// inventory sync may touch everything else.
type AvailabilitySlot struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	ResourceID             string    `gorm:"not null;index:idx_slot_identity,unique,priority:1" json:"resource_id"`
	Date                   time.Time `gorm:"type:date;not null;index:idx_slot_identity,unique,priority:2" json:"date"`
	Timeslot               string    `gorm:"not null;default:'';index:idx_slot_identity,unique,priority:3" json:"timeslot"`
	TotalCapacity          int       `gorm:"not null" json:"total_capacity"`
	BookedCapacity         int       `gorm:"not null;default:0" json:"booked_capacity"`
	ReservedCapacity       int       `gorm:"not null;default:0" json:"reserved_capacity"`
	BasePrice              float64   `gorm:"not null" json:"base_price"`
	DynamicPriceMultiplier float64   `gorm:"not null;default:1" json:"dynamic_price_multiplier"`
	MinBooking             int       `gorm:"not null;default:1" json:"min_booking"`
	MaxBooking             int       `gorm:"not null;default:10" json:"max_booking"`
	CutoffHours            int       `gorm:"not null;default:0" json:"cutoff_hours"`
	ValidityDays           int       `gorm:"not null;default:0" json:"validity_days"`
	IsActive               bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// AvailableCapacity is always derived, never stored.
func (s *AvailabilitySlot) AvailableCapacity() int {
	avail := s.TotalCapacity - s.BookedCapacity - s.ReservedCapacity
	if avail < 0 {
		return 0
	}
	return avail
}

func (s *AvailabilitySlot) IsSoldOut() bool {
	return s.AvailableCapacity() <= 0
}

func (s *AvailabilitySlot) FinalPrice() float64 {
	return math.Round(s.BasePrice*s.DynamicPriceMultiplier*100) / 100
}

type LockStatus string

const (
	LockHeld      LockStatus = "held"
	LockCommitted LockStatus = "committed"
	LockReleased  LockStatus = "released"
)

// ReservationLock is a time-bounded claim on slot capacity during checkout.
// While held, its quantity is counted in the slot's ReservedCapacity. The
// lock's own status transition is what makes commit and release idempotent:
// capacity moves only when the row leaves "held", and it can leave exactly once.
type ReservationLock struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	SlotID      uint       `gorm:"not null;index" json:"slot_id"`
	Quantity    int        `gorm:"not null" json:"quantity"`
	Status      LockStatus `gorm:"type:varchar(20);not null;default:'held'" json:"status"`
	LockedUntil time.Time  `gorm:"not null" json:"locked_until"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Slot *AvailabilitySlot `gorm:"foreignKey:SlotID" json:"-"`
}

func (l *ReservationLock) Expired(now time.Time) bool {
	return now.After(l.LockedUntil)
}
