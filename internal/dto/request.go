package dto

type CreateBookingRequest struct {
	ResourceID string `json:"resource_id"`
	Date       string `json:"date"`
	Timeslot   string `json:"timeslot"`

	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`

	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`

	Taxes    float64 `json:"taxes"`
	Fees     float64 `json:"fees"`
	Discount float64 `json:"discount"`

	RefundPolicy            string `json:"refund_policy"`
	PartialRefundPercentage int    `json:"partial_refund_percentage"`
}

type ConfirmBookingRequest struct {
	PaymentReference string `json:"payment_reference"`
}

type CancelBookingRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

type ExtendHoldRequest struct {
	AdditionalMinutes int `json:"additional_minutes"`
}

type ValidateTicketRequest struct {
	QRCode      string `json:"qr_code"`
	ValidatedBy string `json:"validated_by"`
	Location    string `json:"location"`
}

type TransferTicketRequest struct {
	HolderName  string `json:"holder_name"`
	HolderEmail string `json:"holder_email"`
}

// UpsertSlotRequest is the inventory-sync payload. Capacity counters are
// engine-owned and intentionally absent.
type UpsertSlotRequest struct {
	Date                   string  `json:"date"`
	Timeslot               string  `json:"timeslot"`
	TotalCapacity          int     `json:"total_capacity"`
	BasePrice              float64 `json:"base_price"`
	DynamicPriceMultiplier float64 `json:"dynamic_price_multiplier"`
	MinBooking             int     `json:"min_booking"`
	MaxBooking             int     `json:"max_booking"`
	CutoffHours            int     `json:"cutoff_hours"`
	ValidityDays           int     `json:"validity_days"`
	IsActive               *bool   `json:"is_active"`
}
