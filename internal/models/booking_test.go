package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to BookingStatus }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusPending, StatusExpired},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusNoShow},
	}
	for _, c := range allowed {
		assert.True(t, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}

	forbidden := []struct{ from, to BookingStatus }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusNoShow},
		{StatusConfirmed, StatusExpired},
		{StatusConfirmed, StatusPending},
		{StatusCancelled, StatusConfirmed},
		{StatusExpired, StatusConfirmed},
		{StatusCompleted, StatusCancelled},
		{StatusNoShow, StatusConfirmed},
	}
	for _, c := range forbidden {
		assert.False(t, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestRefundPercentage(t *testing.T) {
	assert.Equal(t, 100, (&Booking{RefundPolicy: RefundFull}).RefundPercentage())
	assert.Equal(t, 80, (&Booking{RefundPolicy: RefundPartial, PartialRefundPercentage: 80}).RefundPercentage())
	assert.Equal(t, 0, (&Booking{RefundPolicy: RefundNone, PartialRefundPercentage: 80}).RefundPercentage())
}

func TestLockExpired(t *testing.T) {
	now := time.Now().UTC()

	assert.False(t, (&Booking{}).LockExpired(now), "no deadline means no expiry")

	future := now.Add(time.Minute)
	assert.False(t, (&Booking{LockedUntil: &future}).LockExpired(now))

	past := now.Add(-time.Minute)
	assert.True(t, (&Booking{LockedUntil: &past}).LockExpired(now))
}
