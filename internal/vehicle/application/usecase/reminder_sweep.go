package usecase

import (
	"context"
	"fmt"
	"strconv"

	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"
)

// ReminderSweepService рассылает напоминания за 24 и 12 часов.
// Маркер захватывается условным UPDATE до отправки: не больше одного письма на маркер.
type ReminderSweepService struct {
	bookings out.BookingRepository
	notifier out.Notifier
	now      clock
	log      *logger.Logger
}

// NewReminderSweepService создает задачу напоминаний
func NewReminderSweepService(bookings out.BookingRepository, notifier out.Notifier, log *logger.Logger) *ReminderSweepService {
	return &ReminderSweepService{bookings: bookings, notifier: notifier, now: systemClock, log: log}
}

// Execute выполняет один проход
func (s *ReminderSweepService) Execute(ctx context.Context) (*in.SweepOutput, error) {
	now := s.now()
	due, err := s.bookings.ListConfirmedBetween(ctx, now, now.Add(domain.ReminderWindow))
	if err != nil {
		return nil, fmt.Errorf("list due bookings: %w", err)
	}

	res := &in.SweepOutput{}
	for _, b := range due {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		reminder, ok := b.DueReminder(now)
		if !ok {
			continue
		}

		claimed, err := s.bookings.ClaimReminder(ctx, b.ID, reminder, now)
		if err != nil {
			res.Failed++
			s.log.Error(logger.Entry{
				Action:    "reminder_claim_failed",
				Message:   err.Error(),
				BookingID: b.ID,
				Error:     &logger.ErrObj{Msg: err.Error()},
			})
			continue
		}
		if !claimed {
			continue
		}

		msg := bookingMessage(b, notify.KindBookingReminder)
		msg.Fields["hours"] = strconv.Itoa(int(reminder))
		sendBestEffort(ctx, s.notifier, s.log, msg, b.ID)
		res.Processed++
	}

	if res.Processed > 0 || res.Failed > 0 {
		s.log.Info(logger.Entry{
			Action:     "reminder_sweep_done",
			Message:    "reminders sent",
			Additional: map[string]any{"sent": res.Processed, "failed": res.Failed},
		})
	}
	return res, nil
}
