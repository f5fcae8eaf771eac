package usecase

import (
	"context"

	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"
)

// ConfirmBookingService реализует ConfirmBookingUseCase
type ConfirmBookingService struct {
	bookings out.BookingRepository
	notifier out.Notifier
	feed     out.BookingFeed
	now      clock
	log      *logger.Logger
}

// NewConfirmBookingService создает сервис подтверждения записи
func NewConfirmBookingService(bookings out.BookingRepository, notifier out.Notifier, feed out.BookingFeed, log *logger.Logger) *ConfirmBookingService {
	return &ConfirmBookingService{bookings: bookings, notifier: notifier, feed: feed, now: systemClock, log: log}
}

// Execute переводит запись Pending -> Confirmed; только дилер
func (s *ConfirmBookingService) Execute(ctx context.Context, input in.ConfirmBookingInput) (*in.BookingAck, error) {
	if err := requireDealer(input.Principal); err != nil {
		return nil, err
	}

	booking, err := s.bookings.Mutate(ctx, input.BookingID, func(b *domain.Booking) error {
		return b.Confirm(s.now())
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(logger.Entry{
		Action:     "booking_confirmed",
		Message:    "test drive confirmed",
		CarID:      booking.CarID,
		BookingID:  booking.ID,
		Additional: map[string]any{"dealer_id": input.Principal.UserID},
	})

	sendBestEffort(ctx, s.notifier, s.log, bookingMessage(booking, notify.KindBookingConfirmed), booking.ID)
	publishEvent(ctx, s.feed, EventBookingConfirmed, booking)

	return &in.BookingAck{
		Message:   "Test drive confirmed",
		BookingID: booking.ID,
		Status:    booking.Status,
	}, nil
}
