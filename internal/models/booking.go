package models

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
	StatusNoShow    BookingStatus = "no-show"
	StatusExpired   BookingStatus = "expired"
)

// bookingTransitions is the closed set of legal status moves. Every status
// change in the engine goes through CanTransition; there are no ad hoc status
// checks at call sites.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusExpired},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

func CanTransition(from, to BookingStatus) bool {
	for _, allowed := range bookingTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type RefundPolicy string

const (
	RefundFull    RefundPolicy = "full"
	RefundPartial RefundPolicy = "partial"
	RefundNone    RefundPolicy = "none"
)

type Booking struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Reference  string    `gorm:"uniqueIndex;not null" json:"reference"`
	ResourceID string    `gorm:"not null;index" json:"resource_id"`
	SlotID     uint      `gorm:"not null;index" json:"slot_id"`
	Date       time.Time `gorm:"type:date;not null" json:"date"`
	Timeslot   string    `gorm:"not null;default:''" json:"timeslot"`

	Adults   int `gorm:"not null" json:"adults"`
	Children int `gorm:"not null;default:0" json:"children"`
	Infants  int `gorm:"not null;default:0" json:"infants"`
	Quantity int `gorm:"not null" json:"quantity"`

	BasePrice  float64 `gorm:"not null" json:"base_price"`
	Taxes      float64 `gorm:"not null;default:0" json:"taxes"`
	Fees       float64 `gorm:"not null;default:0" json:"fees"`
	Discount   float64 `gorm:"not null;default:0" json:"discount"`
	TotalPrice float64 `gorm:"not null" json:"total_price"`

	Status        BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`
	PaymentRef    *string       `json:"payment_ref,omitempty"`

	GuestName  string `gorm:"not null" json:"guest_name"`
	GuestEmail string `gorm:"not null" json:"guest_email"`
	GuestPhone string `json:"guest_phone"`

	// LockID ties the pending booking to its capacity hold. LockedUntil is a
	// denormalized copy of the lock deadline so the sweeper and confirm path
	// can check expiry without a join.
	LockID      *string    `gorm:"type:uuid;index" json:"lock_id,omitempty"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`

	RefundPolicy            RefundPolicy `gorm:"type:varchar(20);not null;default:'full'" json:"refund_policy"`
	PartialRefundPercentage int          `gorm:"not null;default:0" json:"partial_refund_percentage"`
	CancellationDeadline    *time.Time   `json:"cancellation_deadline,omitempty"`
	CancelledAt             *time.Time   `json:"cancelled_at,omitempty"`
	CancelReason            *string      `json:"cancel_reason,omitempty"`
	RefundAmount            *float64     `json:"refund_amount,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tickets []Ticket `gorm:"foreignKey:BookingID" json:"tickets,omitempty"`
}

// RefundPercentage resolves the booking's policy to a percentage of the total.
func (b *Booking) RefundPercentage() int {
	switch b.RefundPolicy {
	case RefundFull:
		return 100
	case RefundPartial:
		return b.PartialRefundPercentage
	default:
		return 0
	}
}

func (b *Booking) LockExpired(now time.Time) bool {
	return b.LockedUntil != nil && now.After(*b.LockedUntil)
}
