package models

import "time"

type TicketStatus string

const (
	TicketActive    TicketStatus = "active"
	TicketUsed      TicketStatus = "used"
	TicketExpired   TicketStatus = "expired"
	TicketCancelled TicketStatus = "cancelled"
	TicketRefunded  TicketStatus = "refunded"
)

// Ticket is one admission unit of a confirmed booking. The active->used flip
// happens through a conditional update in the ticket repository, never by
// writing Status directly, so duplicate gate scans cannot both win.
type Ticket struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	TicketNumber string `gorm:"uniqueIndex;not null" json:"ticket_number"`
	BookingID    uint   `gorm:"not null;index" json:"booking_id"`

	HolderName  string `gorm:"not null" json:"holder_name"`
	HolderEmail string `json:"holder_email"`

	Timeslot   string    `gorm:"not null;default:''" json:"timeslot"`
	ValidFrom  time.Time `gorm:"not null" json:"valid_from"`
	ValidUntil time.Time `gorm:"not null" json:"valid_until"`

	// QRCodeData is a signed payload binding ticket and booking; scanners
	// verify the signature offline before the database is consulted.
	QRCodeData string `gorm:"type:text;not null" json:"qr_code_data"`

	Status             TicketStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	ValidatedAt        *time.Time   `json:"validated_at,omitempty"`
	ValidatedBy        *string      `json:"validated_by,omitempty"`
	ValidationLocation *string      `json:"validation_location,omitempty"`

	IsTransferred  bool    `gorm:"not null;default:false" json:"is_transferred"`
	OriginalHolder *string `json:"original_holder,omitempty"`
	WalletPassRef  *string `json:"wallet_pass_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Ticket) IsValidated() bool {
	return t.ValidatedAt != nil
}

func (t *Ticket) WithinValidityWindow(now time.Time) bool {
	return !now.Before(t.ValidFrom) && !now.After(t.ValidUntil)
}

// TicketSequence backs the per-year monotonic ticket numbering
// (HB-2025-000123). The repository bumps Value atomically.
type TicketSequence struct {
	Year  int  `gorm:"primaryKey" json:"year"`
	Value uint `gorm:"not null;default:0" json:"value"`
}
