package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSlotStartTime(t *testing.T) {
	day := date(2026, 9, 10)

	assert.Equal(t, day, slotStartTime(day, ""), "whole-day products start at midnight")
	assert.Equal(t, day.Add(10*time.Hour+30*time.Minute), slotStartTime(day, "10:30"))
	assert.Equal(t, day.Add(10*time.Hour+30*time.Minute), slotStartTime(day, "10:30-12:00"))
	assert.Equal(t, day, slotStartTime(day, "whenever"), "unparseable timeslot falls back to midnight")
}

func TestValidityWindow(t *testing.T) {
	day := date(2026, 9, 10)

	// Whole-day product: valid from midnight to end of day.
	from, until := validityWindow(day, "", 0)
	assert.Equal(t, day, from)
	assert.Equal(t, day.Add(24*time.Hour-time.Second), until)

	// Timeslotted product: valid from slot start to slot end.
	from, until = validityWindow(day, "10:30-12:00", 0)
	assert.Equal(t, day.Add(10*time.Hour+30*time.Minute), from)
	assert.Equal(t, day.Add(12*time.Hour), until)

	// Multi-day pass: validity extends past the booking date.
	from, until = validityWindow(day, "", 3)
	assert.Equal(t, day, from)
	assert.Equal(t, day.AddDate(0, 0, 3).Add(24*time.Hour-time.Second), until)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1360.0, round2(1700*0.8))
	assert.Equal(t, 36.66, round2(33.33*1.1))
	assert.Equal(t, 0.0, round2(0))
	assert.Equal(t, 12.35, round2(12.345678))
}
