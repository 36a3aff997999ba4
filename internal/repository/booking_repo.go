package repository

import (
	"context"
	"time"

	"github.com/havenbay/booking-engine/internal/models"
	"gorm.io/gorm"
)

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	FindByReference(ctx context.Context, reference string) (*models.Booking, error)
	FindByReferenceWithTickets(ctx context.Context, reference string) (*models.Booking, error)

	// TransitionStatus moves a booking between states only when it still has
	// the expected current state. The conditional update is the serialization
	// point: of any number of concurrent confirm/cancel/expire callers,
	// exactly one observes RowsAffected == 1.
	TransitionStatus(ctx context.Context, tx *gorm.DB, bookingID uint, from, to models.BookingStatus, updates map[string]interface{}) (bool, error)

	UpdateLockDeadline(ctx context.Context, tx *gorm.DB, bookingID uint, until time.Time) error
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Booking, error)

	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByReference(ctx context.Context, reference string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByReferenceWithTickets(ctx context.Context, reference string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Tickets").
		Where("reference = ?", reference).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) TransitionStatus(ctx context.Context, tx *gorm.DB, bookingID uint, from, to models.BookingStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *bookingRepository) UpdateLockDeadline(ctx context.Context, tx *gorm.DB, bookingID uint, until time.Time) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("locked_until", until).Error
}

func (r *bookingRepository) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND locked_until < ?", models.StatusPending, now).
		Order("locked_until ASC").
		Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
