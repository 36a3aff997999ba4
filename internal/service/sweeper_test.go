package service

import (
	"context"
	"testing"
	"time"

	"github.com/havenbay/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// --- Mock repositories and services ---

type mockBookingRepo struct {
	expiredPending []models.Booking
}

func (m *mockBookingRepo) Create(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
	return nil
}
func (m *mockBookingRepo) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockBookingRepo) FindByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockBookingRepo) FindByReferenceWithTickets(ctx context.Context, reference string) (*models.Booking, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockBookingRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, bookingID uint, from, to models.BookingStatus, updates map[string]interface{}) (bool, error) {
	return false, nil
}
func (m *mockBookingRepo) UpdateLockDeadline(ctx context.Context, tx *gorm.DB, bookingID uint, until time.Time) error {
	return nil
}
func (m *mockBookingRepo) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	return m.expiredPending, nil
}
func (m *mockBookingRepo) GetDB() *gorm.DB { return nil }

type mockSlotRepo struct {
	expiredLocks []models.ReservationLock
}

func (m *mockSlotRepo) FindByID(ctx context.Context, id uint) (*models.AvailabilitySlot, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockSlotRepo) FindBySlotKey(ctx context.Context, resourceID string, date time.Time, timeslot string) (*models.AvailabilitySlot, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockSlotRepo) FindRange(ctx context.Context, resourceID string, start, end time.Time) ([]models.AvailabilitySlot, error) {
	return nil, nil
}
func (m *mockSlotRepo) Upsert(ctx context.Context, slot *models.AvailabilitySlot) error { return nil }
func (m *mockSlotRepo) Reserve(ctx context.Context, tx *gorm.DB, slotID uint, quantity int) (bool, error) {
	return false, nil
}
func (m *mockSlotRepo) MoveReservedToBooked(ctx context.Context, tx *gorm.DB, slotID uint, quantity int) error {
	return nil
}
func (m *mockSlotRepo) ReleaseReserved(ctx context.Context, tx *gorm.DB, slotID uint, quantity int) error {
	return nil
}
func (m *mockSlotRepo) ReleaseBooked(ctx context.Context, tx *gorm.DB, slotID uint, quantity int) error {
	return nil
}
func (m *mockSlotRepo) CreateLock(ctx context.Context, tx *gorm.DB, lock *models.ReservationLock) error {
	return nil
}
func (m *mockSlotRepo) FindLock(ctx context.Context, lockID string) (*models.ReservationLock, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockSlotRepo) TransitionLock(ctx context.Context, tx *gorm.DB, lockID string, from, to models.LockStatus) (bool, error) {
	return false, nil
}
func (m *mockSlotRepo) ExtendLock(ctx context.Context, tx *gorm.DB, lockID string, until time.Time) (bool, error) {
	return false, nil
}
func (m *mockSlotRepo) FindExpiredHeldLocks(ctx context.Context, now time.Time, limit int) ([]models.ReservationLock, error) {
	return m.expiredLocks, nil
}
func (m *mockSlotRepo) GetDB() *gorm.DB { return nil }

type mockTicketRepo struct {
	expiredCount int64
}

func (m *mockTicketRepo) CreateBatch(ctx context.Context, tx *gorm.DB, tickets []*models.Ticket) error {
	return nil
}
func (m *mockTicketRepo) FindByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	return nil, gorm.ErrRecordNotFound
}
func (m *mockTicketRepo) FindByBookingID(ctx context.Context, bookingID uint) ([]models.Ticket, error) {
	return nil, nil
}
func (m *mockTicketRepo) NextSequence(ctx context.Context, tx *gorm.DB, year, n int) (uint, error) {
	return 1, nil
}
func (m *mockTicketRepo) MarkUsed(ctx context.Context, ticketID uint, now time.Time, validatedBy, location string) (bool, error) {
	return false, nil
}
func (m *mockTicketRepo) CancelByBooking(ctx context.Context, tx *gorm.DB, bookingID uint, to models.TicketStatus) (int64, error) {
	return 0, nil
}
func (m *mockTicketRepo) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	return m.expiredCount, nil
}
func (m *mockTicketRepo) Transfer(ctx context.Context, ticketID uint, holderName, holderEmail, originalHolder string) (bool, error) {
	return false, nil
}
func (m *mockTicketRepo) GetDB() *gorm.DB { return nil }

type mockExpirer struct {
	expiredIDs []uint
}

func (m *mockExpirer) CreateBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	return nil, nil
}
func (m *mockExpirer) ConfirmBooking(ctx context.Context, reference, paymentRef string) (*models.Booking, error) {
	return nil, nil
}
func (m *mockExpirer) CancelBooking(ctx context.Context, reference, actor, reason string) (*models.Booking, error) {
	return nil, nil
}
func (m *mockExpirer) ExpireBooking(ctx context.Context, bookingID uint) error {
	m.expiredIDs = append(m.expiredIDs, bookingID)
	return nil
}
func (m *mockExpirer) CompleteBooking(ctx context.Context, reference string) (*models.Booking, error) {
	return nil, nil
}
func (m *mockExpirer) MarkNoShow(ctx context.Context, reference string) (*models.Booking, error) {
	return nil, nil
}
func (m *mockExpirer) ExtendHold(ctx context.Context, reference string, additional time.Duration) (*models.Booking, error) {
	return nil, nil
}
func (m *mockExpirer) GetBooking(ctx context.Context, reference string) (*models.Booking, error) {
	return nil, nil
}

type mockReleaser struct {
	releasedIDs []string
}

func (m *mockReleaser) Acquire(ctx context.Context, resourceID string, date time.Time, timeslot string, quantity int, holdDuration time.Duration) (*models.ReservationLock, error) {
	return nil, nil
}
func (m *mockReleaser) Extend(ctx context.Context, lockID string, additional time.Duration) (*models.ReservationLock, error) {
	return nil, nil
}
func (m *mockReleaser) Commit(ctx context.Context, lockID string) error { return nil }
func (m *mockReleaser) Release(ctx context.Context, lockID string) error {
	m.releasedIDs = append(m.releasedIDs, lockID)
	return nil
}

// --- Tests ---

func TestSweeperRunOnce(t *testing.T) {
	bookingRepo := &mockBookingRepo{expiredPending: []models.Booking{
		{ID: 7, Reference: "HB-B-00000007"},
		{ID: 9, Reference: "HB-B-00000009"},
	}}
	slotRepo := &mockSlotRepo{expiredLocks: []models.ReservationLock{
		{ID: "lock-a"},
	}}
	ticketRepo := &mockTicketRepo{expiredCount: 3}
	expirer := &mockExpirer{}
	releaser := &mockReleaser{}

	s := NewSweeper(bookingRepo, slotRepo, ticketRepo, expirer, releaser, time.Minute)
	expired, expiredTickets := s.RunOnce(context.Background())

	assert.Equal(t, 2, expired)
	assert.Equal(t, int64(3), expiredTickets)
	assert.Equal(t, []uint{7, 9}, expirer.expiredIDs)
	assert.Equal(t, []string{"lock-a"}, releaser.releasedIDs)
}

func TestSweeperRunOnce_Empty(t *testing.T) {
	s := NewSweeper(&mockBookingRepo{}, &mockSlotRepo{}, &mockTicketRepo{}, &mockExpirer{}, &mockReleaser{}, time.Minute)

	expired, expiredTickets := s.RunOnce(context.Background())
	assert.Equal(t, 0, expired)
	assert.Equal(t, int64(0), expiredTickets)
}
