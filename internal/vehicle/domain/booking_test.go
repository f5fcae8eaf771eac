package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlot(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		date  string
		clock string
		ok    bool
	}{
		{"future", "2026-10-16", "10:30", true},
		{"later today", "2026-10-15", "12:01", true},
		{"now is not future", "2026-10-15", "12:00", false},
		{"past", "2026-10-14", "10:00", false},
		{"bad date format", "16-10-2026", "10:00", false},
		{"impossible date", "2026-02-30", "10:00", false},
		{"single digit hour", "2026-10-16", "9:00", false},
		{"hour out of range", "2026-10-16", "24:00", false},
		{"minute out of range", "2026-10-16", "10:60", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := ParseSlot(tt.date, tt.clock, time.UTC, now)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidSchedule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.date, slot.Date)
			assert.Equal(t, tt.clock, slot.Time)
		})
	}
}

func TestParseSlot_UsesDealerTimezone(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	slot, err := ParseSlot("2026-10-16", "10:00", loc, now)
	require.NoError(t, err)
	assert.True(t, slot.At.Equal(time.Date(2026, 10, 16, 4, 30, 0, 0, time.UTC)))
}

func newTestBooking(t *testing.T) *Booking {
	t.Helper()
	car, err := NewCar(attrs(), dealerParty(), "KP Group", t0)
	require.NoError(t, err)
	slot, err := ParseSlot("2026-10-05", "11:00", time.UTC, t0)
	require.NoError(t, err)
	return NewBooking(car, slot, "u-1", "u-1@example.com", Dealer{Name: "KP Group", Address: "Mall Road"}, t0)
}

func TestBooking_Transitions(t *testing.T) {
	b := newTestBooking(t)
	assert.Equal(t, BookingPending, b.Status)
	assert.Equal(t, "Toyota", b.CarBrand)

	assert.ErrorIs(t, b.Complete(t0), ErrInvalidState)
	require.NoError(t, b.Confirm(t0))
	assert.ErrorIs(t, b.Confirm(t0), ErrInvalidState)
	require.NoError(t, b.Complete(t0))

	assert.ErrorIs(t, b.Cancel("late", t0), ErrInvalidState)
	assert.ErrorIs(t, b.Reschedule(b.Slot, t0), ErrInvalidState)
}

func TestBooking_CancelRecordsReason(t *testing.T) {
	b := newTestBooking(t)
	require.NoError(t, b.Cancel("changed my mind", t0))

	assert.Equal(t, BookingCancelled, b.Status)
	assert.Equal(t, "changed my mind", b.CancellationReason)
	assert.ErrorIs(t, b.Confirm(t0), ErrInvalidState)
}

func TestBooking_RescheduleResetsReminders(t *testing.T) {
	b := newTestBooking(t)
	require.NoError(t, b.Confirm(t0))
	b.MarkReminder(Reminder12h, t0)

	next, err := ParseSlot("2026-10-07", "15:30", time.UTC, t0)
	require.NoError(t, err)
	require.NoError(t, b.Reschedule(next, t0))

	assert.Equal(t, BookingConfirmed, b.Status)
	assert.True(t, b.IsRescheduled)
	assert.Equal(t, "2026-10-07", b.Date)
	assert.Nil(t, b.Reminder24hSentAt)
	assert.Nil(t, b.Reminder12hSentAt)
}

func TestBooking_DueReminder(t *testing.T) {
	b := newTestBooking(t)
	at := b.At

	_, ok := b.DueReminder(at.Add(-20 * time.Hour))
	assert.False(t, ok, "pending bookings get no reminders")

	require.NoError(t, b.Confirm(t0))

	_, ok = b.DueReminder(at.Add(-25 * time.Hour))
	assert.False(t, ok)

	r, ok := b.DueReminder(at.Add(-20 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, Reminder24h, r)
	b.MarkReminder(r, at.Add(-20*time.Hour))

	_, ok = b.DueReminder(at.Add(-19 * time.Hour))
	assert.False(t, ok)

	r, ok = b.DueReminder(at.Add(-11 * time.Hour))
	require.True(t, ok)
	assert.Equal(t, Reminder12h, r)
	b.MarkReminder(r, at.Add(-11*time.Hour))

	_, ok = b.DueReminder(at.Add(-time.Hour))
	assert.False(t, ok)
	_, ok = b.DueReminder(at.Add(time.Minute))
	assert.False(t, ok)
}

func TestBooking_LateEntrySupersedes24h(t *testing.T) {
	b := newTestBooking(t)
	require.NoError(t, b.Confirm(t0))

	now := b.At.Add(-6 * time.Hour)
	r, ok := b.DueReminder(now)
	require.True(t, ok)
	assert.Equal(t, Reminder12h, r)

	b.MarkReminder(r, now)
	assert.NotNil(t, b.Reminder24hSentAt)
	assert.NotNil(t, b.Reminder12hSentAt)
}

func TestAdmissionPolicy_Order(t *testing.T) {
	p := DefaultAdmissionPolicy()

	assert.NoError(t, p.Admit(AdmissionCounts{ActiveOnDay: 4, UserActiveRecent: 2}))
	assert.ErrorIs(t, p.Admit(AdmissionCounts{SlotTaken: true, ActiveOnDay: 5, UserActiveRecent: 3}), ErrSlotTaken)
	assert.ErrorIs(t, p.Admit(AdmissionCounts{ActiveOnDay: 5, UserActiveRecent: 3}), ErrDailyCapacity)

	err := p.Admit(AdmissionCounts{ActiveOnDay: 1, UserActiveRecent: 3})
	assert.ErrorIs(t, err, ErrBookingQuota)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.NotErrorIs(t, err, ErrConflict)

	assert.Equal(t, t0.Add(-30*24*time.Hour), p.QuotaSince(t0))
}

func TestAdmissionPolicy_AdmitMoveIgnoresQuota(t *testing.T) {
	p := DefaultAdmissionPolicy()

	assert.NoError(t, p.AdmitMove(AdmissionCounts{ActiveOnDay: 4, UserActiveRecent: 3}))
	assert.ErrorIs(t, p.AdmitMove(AdmissionCounts{SlotTaken: true}), ErrSlotTaken)
	assert.ErrorIs(t, p.AdmitMove(AdmissionCounts{ActiveOnDay: 5}), ErrDailyCapacity)
}
