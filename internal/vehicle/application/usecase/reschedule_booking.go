package usecase

import (
	"context"
	"time"

	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"
)

// RescheduleBookingService реализует RescheduleBookingUseCase
type RescheduleBookingService struct {
	bookings out.BookingRepository
	notifier out.Notifier
	feed     out.BookingFeed
	policy   domain.AdmissionPolicy
	loc      *time.Location
	now      clock
	log      *logger.Logger
}

// NewRescheduleBookingService создает сервис переноса записи
func NewRescheduleBookingService(
	bookings out.BookingRepository,
	notifier out.Notifier,
	feed out.BookingFeed,
	loc *time.Location,
	log *logger.Logger,
) *RescheduleBookingService {
	return &RescheduleBookingService{
		bookings: bookings,
		notifier: notifier,
		feed:     feed,
		policy:   domain.DefaultAdmissionPolicy(),
		loc:      loc,
		now:      systemClock,
		log:      log,
	}
}

// Execute переносит активную запись на свободный слот в пределах дневного лимита
func (s *RescheduleBookingService) Execute(ctx context.Context, input in.RescheduleBookingInput) (*in.BookingAck, error) {
	now := s.now()
	slot, err := domain.ParseSlot(input.Date, input.Time, s.loc, now)
	if err != nil {
		return nil, err
	}

	var previous domain.Slot
	booking, err := s.bookings.Reschedule(ctx, input.BookingID, s.policy, func(b *domain.Booking) error {
		if err := ownerOrDealer(input.Principal, b); err != nil {
			return err
		}
		previous = b.Slot
		return b.Reschedule(slot, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(logger.Entry{
		Action:    "booking_rescheduled",
		Message:   "test drive rescheduled",
		CarID:     booking.CarID,
		BookingID: booking.ID,
		Additional: map[string]any{
			"from_date": previous.Date,
			"from_time": previous.Time,
			"to_date":   slot.Date,
			"to_time":   slot.Time,
			"by":        input.Principal.UserID,
		},
	})

	sendBestEffort(ctx, s.notifier, s.log, bookingMessage(booking, notify.KindBookingRescheduled), booking.ID)
	publishEvent(ctx, s.feed, EventBookingRescheduled, booking)

	return &in.BookingAck{
		Message:   "Test drive rescheduled",
		BookingID: booking.ID,
		Status:    booking.Status,
	}, nil
}
