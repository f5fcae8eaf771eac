package out

import (
	"context"

	"carmarket/internal/shared/notify"
	"carmarket/internal/vehicle/domain"
)

// Identity — ответ identity сервиса
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// IdentityDirectory ищет пользователя по email в identity сервисе
type IdentityDirectory interface {
	LookupByEmail(ctx context.Context, email string) (*Identity, error)
}

// Notifier отправляет письма; ошибка только логируется
type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

// BookingEvent — событие живой ленты дилера
type BookingEvent struct {
	Type    string          `json:"type"`
	Booking *domain.Booking `json:"booking"`
}

// BookingFeed пушит события в WebSocket; доставка не гарантируется
type BookingFeed interface {
	Publish(ctx context.Context, evt BookingEvent)
}
