package usecase

import (
	"context"
	"strings"

	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"
)

const (
	defaultUserCancelReason   = "Cancelled by customer"
	defaultDealerCancelReason = "Cancelled by dealer"
)

// CancelBookingService реализует CancelBookingUseCase
type CancelBookingService struct {
	bookings out.BookingRepository
	notifier out.Notifier
	feed     out.BookingFeed
	now      clock
	log      *logger.Logger
}

// NewCancelBookingService создает сервис отмены записи
func NewCancelBookingService(bookings out.BookingRepository, notifier out.Notifier, feed out.BookingFeed, log *logger.Logger) *CancelBookingService {
	return &CancelBookingService{bookings: bookings, notifier: notifier, feed: feed, now: systemClock, log: log}
}

// Execute отменяет активную запись; текст письма зависит от того, кто отменил
func (s *CancelBookingService) Execute(ctx context.Context, input in.CancelBookingInput) (*in.BookingAck, error) {
	byDealer := false
	booking, err := s.bookings.Mutate(ctx, input.BookingID, func(b *domain.Booking) error {
		if err := ownerOrDealer(input.Principal, b); err != nil {
			return err
		}
		// дилер, отменяющий собственную запись, действует как клиент
		byDealer = input.Principal.IsDealer() && !input.Principal.Owns(b.UserID)
		return b.Cancel(cancelReason(input.Reason, byDealer), s.now())
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(logger.Entry{
		Action:    "booking_cancelled",
		Message:   booking.CancellationReason,
		CarID:     booking.CarID,
		BookingID: booking.ID,
		Additional: map[string]any{
			"by":        input.Principal.UserID,
			"by_dealer": byDealer,
		},
	})

	kind := notify.KindBookingCancelled
	if byDealer {
		kind = notify.KindDealerCancelled
	}
	sendBestEffort(ctx, s.notifier, s.log, bookingMessage(booking, kind), booking.ID)
	publishEvent(ctx, s.feed, EventBookingCancelled, booking)

	return &in.BookingAck{
		Message:   "Test drive cancelled",
		BookingID: booking.ID,
		Status:    booking.Status,
	}, nil
}

func cancelReason(reason string, byDealer bool) string {
	if r := strings.TrimSpace(reason); r != "" {
		return r
	}
	if byDealer {
		return defaultDealerCancelReason
	}
	return defaultUserCancelReason
}
