package service

import "errors"

// Capacity rejections: expected business outcomes, surfaced to the caller as
// "not bookable", never as faults.
var (
	ErrSlotNotFound         = errors.New("availability slot not found")
	ErrSlotInactive         = errors.New("slot is not active")
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrBelowMinimum         = errors.New("quantity below slot minimum")
	ErrAboveMaximum         = errors.New("quantity above slot maximum")
	ErrWithinCutoffWindow   = errors.New("inside booking cutoff window")
)

// State rejections: caller misuse or a race lost. Losing a race here is a
// normal outcome (one caller wins), not a bug.
var (
	ErrBookingNotFound            = errors.New("booking not found")
	ErrInvalidTransition          = errors.New("invalid booking state transition")
	ErrLockNotFound               = errors.New("reservation lock not found")
	ErrLockExpired                = errors.New("reservation lock expired")
	ErrCancellationDeadlinePassed = errors.New("cancellation deadline passed")
	ErrTicketNotFound             = errors.New("ticket not found")
	ErrTicketNotActive            = errors.New("ticket is not active")
	ErrAlreadyValidated           = errors.New("ticket already validated")
	ErrOutsideValidityWindow      = errors.New("ticket outside validity window")
	ErrAlreadyTransferred         = errors.New("ticket already transferred")
)

// System faults.
var (
	ErrInvalidQRCode = errors.New("qr payload failed signature verification")
)
