package repository

import (
	"context"
	"time"

	"github.com/havenbay/booking-engine/internal/models"
	"gorm.io/gorm"
)

type TicketRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, tickets []*models.Ticket) error
	FindByNumber(ctx context.Context, number string) (*models.Ticket, error)
	FindByBookingID(ctx context.Context, bookingID uint) ([]models.Ticket, error)

	// NextSequence atomically advances the per-year ticket counter by n and
	// returns the first number of the allocated block.
	NextSequence(ctx context.Context, tx *gorm.DB, year int, n int) (uint, error)

	// MarkUsed flips a ticket active -> used only while it is active and
	// inside its validity window. Concurrent scans of the same ticket get
	// exactly one RowsAffected == 1.
	MarkUsed(ctx context.Context, ticketID uint, now time.Time, validatedBy, location string) (bool, error)

	// CancelByBooking cascades a booking cancellation to its not-yet-validated
	// tickets. Used tickets are left alone: admission already happened.
	CancelByBooking(ctx context.Context, tx *gorm.DB, bookingID uint, to models.TicketStatus) (int64, error)

	// ExpireBefore marks active tickets whose window has closed as expired
	// and returns how many rows changed.
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)

	Transfer(ctx context.Context, ticketID uint, holderName, holderEmail, originalHolder string) (bool, error)

	GetDB() *gorm.DB
}

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *ticketRepository) CreateBatch(ctx context.Context, tx *gorm.DB, tickets []*models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(tickets).Error
}

func (r *ticketRepository) FindByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("ticket_number = ?", number).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) FindByBookingID(ctx context.Context, bookingID uint) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("ticket_number ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) NextSequence(ctx context.Context, tx *gorm.DB, year int, n int) (uint, error) {
	var last uint
	err := tx.WithContext(ctx).Raw(`
		INSERT INTO ticket_sequences (year, value) VALUES (?, ?)
		ON CONFLICT (year) DO UPDATE SET value = ticket_sequences.value + EXCLUDED.value
		RETURNING value
	`, year, n).Scan(&last).Error
	if err != nil {
		return 0, err
	}
	return last - uint(n) + 1, nil
}

func (r *ticketRepository) MarkUsed(ctx context.Context, ticketID uint, now time.Time, validatedBy, location string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ? AND valid_from <= ? AND valid_until >= ?",
			ticketID, models.TicketActive, now, now).
		Updates(map[string]interface{}{
			"status":              models.TicketUsed,
			"validated_at":        now,
			"validated_by":        validatedBy,
			"validation_location": location,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ticketRepository) CancelByBooking(ctx context.Context, tx *gorm.DB, bookingID uint, to models.TicketStatus) (int64, error) {
	res := tx.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("booking_id = ? AND status = ?", bookingID, models.TicketActive).
		Update("status", to)
	return res.RowsAffected, res.Error
}

func (r *ticketRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("status = ? AND valid_until < ?", models.TicketActive, now).
		Update("status", models.TicketExpired)
	return res.RowsAffected, res.Error
}

func (r *ticketRepository) Transfer(ctx context.Context, ticketID uint, holderName, holderEmail, originalHolder string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND status = ? AND validated_at IS NULL AND is_transferred = false",
			ticketID, models.TicketActive).
		Updates(map[string]interface{}{
			"holder_name":     holderName,
			"holder_email":    holderEmail,
			"is_transferred":  true,
			"original_holder": originalHolder,
			"wallet_pass_ref": gorm.Expr("NULL"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
