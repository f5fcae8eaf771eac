package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carmarket/internal/shared/auth"
	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"
)

// Типы событий живой ленты дилера
const (
	EventBookingCreated     = "booking_created"
	EventBookingConfirmed   = "booking_confirmed"
	EventBookingRescheduled = "booking_rescheduled"
	EventBookingCancelled   = "booking_cancelled"
	EventBookingCompleted   = "booking_completed"
)

// CarSoldReason — причина каскадной отмены при продаже автомобиля
const CarSoldReason = "We apologize, but the car you were scheduled to test drive has been sold."

// notifyTimeout ограничивает публикацию уведомления
const notifyTimeout = 5 * time.Second

type clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// resolveUser запрашивает идентичность пользователя у identity сервиса на время запроса
func resolveUser(ctx context.Context, dir out.IdentityDirectory, p auth.Principal) (*out.Identity, error) {
	if p.Email == "" {
		return nil, domain.ErrUserNotFound
	}
	id, err := dir.LookupByEmail(ctx, p.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("lookup user %s: %w", p.Email, err)
	}
	return id, nil
}

func bookingFields(b *domain.Booking) map[string]string {
	return map[string]string{
		"brand":          b.CarBrand,
		"model":          b.CarModel,
		"date":           b.Date,
		"time":           b.Time,
		"dealer_name":    b.DealerName,
		"dealer_address": b.DealerAddress,
	}
}

func bookingMessage(b *domain.Booking, kind notify.Kind) notify.Message {
	fields := bookingFields(b)
	if b.CancellationReason != "" {
		fields["reason"] = b.CancellationReason
	}
	return notify.Message{To: b.Email, Kind: kind, Fields: fields}
}

// sendBestEffort отправляет уведомление после коммита; ошибка только логируется
func sendBestEffort(ctx context.Context, n out.Notifier, log *logger.Logger, msg notify.Message, bookingID string) {
	if n == nil || msg.To == "" {
		return
	}
	// письмо не должно пропасть, если клиент отключился сразу после коммита
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := n.Send(sendCtx, msg); err != nil {
		log.Error(logger.Entry{
			Action:    "notification_failed",
			Message:   err.Error(),
			BookingID: bookingID,
			Error:     &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"kind": string(msg.Kind),
				"to":   msg.To,
			},
		})
	}
}

func publishEvent(ctx context.Context, feed out.BookingFeed, typ string, b *domain.Booking) {
	if feed == nil {
		return
	}
	feed.Publish(ctx, out.BookingEvent{Type: typ, Booking: b})
}

func requireDealer(p auth.Principal) error {
	if !p.IsDealer() {
		return domain.ErrDealerOnly
	}
	return nil
}

// ownerOrDealer — запись может менять ее автор или дилер
func ownerOrDealer(p auth.Principal, b *domain.Booking) error {
	if p.IsDealer() || p.Owns(b.UserID) {
		return nil
	}
	return domain.ErrForbidden
}
