package repository

import (
	"context"
	"time"

	"github.com/havenbay/booking-engine/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SlotRepository is the persistence layer of the availability ledger. The
// capacity counters only ever move through the conditional updates below, so
// `booked + reserved <= total` holds under any interleaving of callers;
// there is no read-then-write anywhere.
type SlotRepository interface {
	FindByID(ctx context.Context, id uint) (*models.AvailabilitySlot, error)
	FindBySlotKey(ctx context.Context, resourceID string, date time.Time, timeslot string) (*models.AvailabilitySlot, error)
	FindRange(ctx context.Context, resourceID string, start, end time.Time) ([]models.AvailabilitySlot, error)
	Upsert(ctx context.Context, slot *models.AvailabilitySlot) error

	// Reserve atomically checks available >= quantity and increments
	// reserved_capacity. Returns false when the guard fails (sold out or
	// slot inactive).
	Reserve(ctx context.Context, tx *gorm.DB, slotID uint, quantity int) (bool, error)
	MoveReservedToBooked(ctx context.Context, tx *gorm.DB, slotID uint, quantity int) error
	ReleaseReserved(ctx context.Context, tx *gorm.DB, slotID uint, quantity int) error
	ReleaseBooked(ctx context.Context, tx *gorm.DB, slotID uint, quantity int) error

	CreateLock(ctx context.Context, tx *gorm.DB, lock *models.ReservationLock) error
	FindLock(ctx context.Context, lockID string) (*models.ReservationLock, error)
	// TransitionLock flips a lock's status only when it currently has the
	// expected one; the single winner is what keeps commit/release idempotent.
	TransitionLock(ctx context.Context, tx *gorm.DB, lockID string, from, to models.LockStatus) (bool, error)
	ExtendLock(ctx context.Context, tx *gorm.DB, lockID string, until time.Time) (bool, error)
	FindExpiredHeldLocks(ctx context.Context, now time.Time, limit int) ([]models.ReservationLock, error)

	GetDB() *gorm.DB
}

type slotRepository struct {
	db *gorm.DB
}

func NewSlotRepository(db *gorm.DB) SlotRepository {
	return &slotRepository{db: db}
}

func (r *slotRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *slotRepository) FindByID(ctx context.Context, id uint) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	if err := r.db.WithContext(ctx).First(&slot, id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepository) FindBySlotKey(ctx context.Context, resourceID string, date time.Time, timeslot string) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND date = ? AND timeslot = ?", resourceID, date.Format("2006-01-02"), timeslot).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepository) FindRange(ctx context.Context, resourceID string, start, end time.Time) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := r.db.WithContext(ctx).
		Where("resource_id = ? AND date BETWEEN ? AND ?", resourceID, start.Format("2006-01-02"), end.Format("2006-01-02")).
		Order("date ASC, timeslot ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// Upsert is the inventory-sync entry point. It deliberately never assigns
// booked_capacity or reserved_capacity; those columns belong to the engine.
func (r *slotRepository) Upsert(ctx context.Context, slot *models.AvailabilitySlot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "resource_id"}, {Name: "date"}, {Name: "timeslot"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_capacity", "base_price", "dynamic_price_multiplier",
			"min_booking", "max_booking", "cutoff_hours", "validity_days",
			"is_active", "updated_at",
		}),
	}).Create(slot).Error
}

func (r *slotRepository) Reserve(ctx context.Context, tx *gorm.DB, slotID uint, quantity int) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("id = ? AND is_active AND total_capacity - booked_capacity - reserved_capacity >= ?", slotID, quantity).
		UpdateColumn("reserved_capacity", gorm.Expr("reserved_capacity + ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *slotRepository) MoveReservedToBooked(ctx context.Context, tx *gorm.DB, slotID uint, quantity int) error {
	return tx.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("id = ?", slotID).
		UpdateColumns(map[string]interface{}{
			"reserved_capacity": gorm.Expr("reserved_capacity - ?", quantity),
			"booked_capacity":   gorm.Expr("booked_capacity + ?", quantity),
		}).Error
}

func (r *slotRepository) ReleaseReserved(ctx context.Context, tx *gorm.DB, slotID uint, quantity int) error {
	return tx.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("id = ?", slotID).
		UpdateColumn("reserved_capacity", gorm.Expr("GREATEST(reserved_capacity - ?, 0)", quantity)).Error
}

func (r *slotRepository) ReleaseBooked(ctx context.Context, tx *gorm.DB, slotID uint, quantity int) error {
	return tx.WithContext(ctx).
		Model(&models.AvailabilitySlot{}).
		Where("id = ?", slotID).
		UpdateColumn("booked_capacity", gorm.Expr("GREATEST(booked_capacity - ?, 0)", quantity)).Error
}

func (r *slotRepository) CreateLock(ctx context.Context, tx *gorm.DB, lock *models.ReservationLock) error {
	return tx.WithContext(ctx).Create(lock).Error
}

func (r *slotRepository) FindLock(ctx context.Context, lockID string) (*models.ReservationLock, error) {
	var lock models.ReservationLock
	if err := r.db.WithContext(ctx).Where("id = ?", lockID).First(&lock).Error; err != nil {
		return nil, err
	}
	return &lock, nil
}

func (r *slotRepository) TransitionLock(ctx context.Context, tx *gorm.DB, lockID string, from, to models.LockStatus) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.ReservationLock{}).
		Where("id = ? AND status = ?", lockID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindExpiredHeldLocks lists holds past their deadline that were never
// finished. Normally the booking sweep releases these; this scan catches
// locks orphaned by a crash between acquire and booking persist.
func (r *slotRepository) FindExpiredHeldLocks(ctx context.Context, now time.Time, limit int) ([]models.ReservationLock, error) {
	var locks []models.ReservationLock
	err := r.db.WithContext(ctx).
		Where("status = ? AND locked_until < ?", models.LockHeld, now).
		Order("locked_until ASC").
		Limit(limit).
		Find(&locks).Error
	if err != nil {
		return nil, err
	}
	return locks, nil
}

// ExtendLock pushes the deadline of a hold that is still held and not yet
// lapsed; extending an expired hold must fail so the sweeper's reclaim wins.
func (r *slotRepository) ExtendLock(ctx context.Context, tx *gorm.DB, lockID string, until time.Time) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&models.ReservationLock{}).
		Where("id = ? AND status = ? AND locked_until > ?", lockID, models.LockHeld, time.Now().UTC()).
		Update("locked_until", until)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
