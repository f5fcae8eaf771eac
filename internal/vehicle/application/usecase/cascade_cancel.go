package usecase

import (
	"context"
	"errors"
	"fmt"

	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"
)

// CascadeCancelService отменяет все активные записи автомобиля по одной.
// Частичный результат не откатывается: каждая отмена атомарна сама по себе.
type CascadeCancelService struct {
	bookings out.BookingRepository
	notifier out.Notifier
	feed     out.BookingFeed
	now      clock
	log      *logger.Logger
}

// NewCascadeCancelService создает сервис каскадной отмены
func NewCascadeCancelService(bookings out.BookingRepository, notifier out.Notifier, feed out.BookingFeed, log *logger.Logger) *CascadeCancelService {
	return &CascadeCancelService{bookings: bookings, notifier: notifier, feed: feed, now: systemClock, log: log}
}

// Execute возвращает число отмененных записей
func (s *CascadeCancelService) Execute(ctx context.Context, carID, reason string) (int, error) {
	active, err := s.bookings.ListActiveByCar(ctx, carID)
	if err != nil {
		return 0, fmt.Errorf("list active bookings: %w", err)
	}

	cancelled := 0
	var failed error
	for _, candidate := range active {
		booking, err := s.bookings.Mutate(ctx, candidate.ID, func(b *domain.Booking) error {
			return b.Cancel(reason, s.now())
		})
		if err != nil {
			// запись уже ушла из активных параллельно
			if errors.Is(err, domain.ErrInvalidState) || errors.Is(err, domain.ErrBookingNotFound) {
				continue
			}
			s.log.Error(logger.Entry{
				Action:    "cascade_cancel_failed",
				Message:   err.Error(),
				CarID:     carID,
				BookingID: candidate.ID,
				Error:     &logger.ErrObj{Msg: err.Error()},
			})
			failed = errors.Join(failed, err)
			continue
		}
		cancelled++

		sendBestEffort(ctx, s.notifier, s.log, bookingMessage(booking, notify.KindCarSoldApology), booking.ID)
		publishEvent(ctx, s.feed, EventBookingCancelled, booking)
	}

	if cancelled > 0 {
		s.log.Info(logger.Entry{
			Action:     "cascade_cancelled",
			Message:    reason,
			CarID:      carID,
			Additional: map[string]any{"count": cancelled},
		})
	}
	return cancelled, failed
}
