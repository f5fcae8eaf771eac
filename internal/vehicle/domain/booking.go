package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// BookingStatus — статус записи на тест-драйв
type BookingStatus string

const (
	BookingPending   BookingStatus = "Pending"
	BookingConfirmed BookingStatus = "Confirmed"
	BookingCompleted BookingStatus = "Completed"
	BookingCancelled BookingStatus = "Cancelled"
)

// ParseBookingStatus разбирает статус из запроса
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch st := BookingStatus(s); st {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return st, true
	}
	return "", false
}

// Active — Pending и Confirmed занимают слот
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Slot — дата и время тест-драйва в часовом поясе дилера
type Slot struct {
	Date string    `json:"scheduledDate"`
	Time string    `json:"scheduledTime"`
	At   time.Time `json:"scheduledAt"`
}

// ParseSlot проверяет формат YYYY-MM-DD / HH:MM и что момент в будущем
func ParseSlot(date, clock string, loc *time.Location, now time.Time) (Slot, error) {
	if !dateRe.MatchString(date) || !timeRe.MatchString(clock) {
		return Slot{}, ErrInvalidSchedule
	}
	at, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, loc)
	if err != nil {
		return Slot{}, ErrInvalidSchedule
	}
	if !at.After(now) {
		return Slot{}, ErrInvalidSchedule
	}
	return Slot{Date: date, Time: clock, At: at}, nil
}

// Booking — запись на тест-драйв.
// Бренд и модель денормализованы, чтобы история пережила изменения автомобиля.
type Booking struct {
	Slot
	ID                 string        `json:"id"`
	CarID              string        `json:"carId"`
	CarBrand           string        `json:"carBrand"`
	CarModel           string        `json:"carModel"`
	Status             BookingStatus `json:"status"`
	IsRescheduled      bool          `json:"isRescheduled"`
	UserID             string        `json:"userId"`
	Email              string        `json:"email"`
	DealerName         string        `json:"dealerName"`
	DealerAddress      string        `json:"dealerAddress"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
	Reminder24hSentAt  *time.Time    `json:"reminder24hSentAt,omitempty"`
	Reminder12hSentAt  *time.Time    `json:"reminder12hSentAt,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// Dealer — реквизиты дилерского центра, проставляемые в запись
type Dealer struct {
	Name    string
	Address string
}

// NewBooking создает запись в статусе Pending
func NewBooking(car *Car, slot Slot, userID, email string, dealer Dealer, now time.Time) *Booking {
	return &Booking{
		ID:            uuid.NewString(),
		CarID:         car.ID,
		CarBrand:      car.Brand,
		CarModel:      car.Model,
		Slot:          slot,
		Status:        BookingPending,
		UserID:        userID,
		Email:         email,
		DealerName:    dealer.Name,
		DealerAddress: dealer.Address,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Confirm: Pending -> Confirmed
func (b *Booking) Confirm(now time.Time) error {
	if b.Status != BookingPending {
		return ErrInvalidState
	}
	b.Status = BookingConfirmed
	b.UpdatedAt = now
	return nil
}

// Cancel: Pending|Confirmed -> Cancelled
func (b *Booking) Cancel(reason string, now time.Time) error {
	if !b.Status.Active() {
		return ErrInvalidState
	}
	b.Status = BookingCancelled
	b.CancellationReason = reason
	b.UpdatedAt = now
	return nil
}

// Reschedule переносит активную запись, статус сохраняется, напоминания сбрасываются
func (b *Booking) Reschedule(slot Slot, now time.Time) error {
	if !b.Status.Active() {
		return ErrInvalidState
	}
	b.Slot = slot
	b.IsRescheduled = true
	b.Reminder24hSentAt = nil
	b.Reminder12hSentAt = nil
	b.UpdatedAt = now
	return nil
}

// Complete: Confirmed -> Completed
func (b *Booking) Complete(now time.Time) error {
	if b.Status != BookingConfirmed {
		return ErrInvalidState
	}
	b.Status = BookingCompleted
	b.UpdatedAt = now
	return nil
}

// Reminder — напоминание за N часов
type Reminder int

const (
	Reminder24h Reminder = 24
	Reminder12h Reminder = 12
)

// ReminderWindow — горизонт, в котором рассылаются напоминания
const ReminderWindow = 24 * time.Hour

// DueReminder определяет, какое напоминание пора отправить.
// Запись, попавшая в окно меньше чем за 12 часов, получает только 12-часовое.
func (b *Booking) DueReminder(now time.Time) (Reminder, bool) {
	if b.Status != BookingConfirmed {
		return 0, false
	}
	left := b.At.Sub(now)
	if left <= 0 || left > ReminderWindow {
		return 0, false
	}
	if left <= time.Duration(Reminder12h)*time.Hour {
		return Reminder12h, b.Reminder12hSentAt == nil
	}
	return Reminder24h, b.Reminder24hSentAt == nil
}

// MarkReminder фиксирует отправку; 12-часовое закрывает и 24-часовое
func (b *Booking) MarkReminder(r Reminder, at time.Time) {
	switch r {
	case Reminder12h:
		b.Reminder12hSentAt = &at
		if b.Reminder24hSentAt == nil {
			b.Reminder24hSentAt = &at
		}
	case Reminder24h:
		b.Reminder24hSentAt = &at
	}
}
