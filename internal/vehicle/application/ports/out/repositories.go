package out

import (
	"context"
	"time"

	"carmarket/internal/vehicle/domain"
)

// TransferFunc проверяет и меняет заблокированный автомобиль, возвращая запись журнала
type TransferFunc func(car *domain.Car) (*domain.Transaction, error)

// CarRepository — каталог автомобилей
type CarRepository interface {
	Create(ctx context.Context, car *domain.Car) error
	FindByID(ctx context.Context, id string) (*domain.Car, error)
	// FindByBrand: сначала дилерские, открытые для тест-драйва, затем самые старые
	FindByBrand(ctx context.Context, brand string) (*domain.Car, error)
	FindPrimaryDealer(ctx context.Context, dealerName string) (*domain.Party, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Car, int, error)
	ListAvailable(ctx context.Context) ([]*domain.Car, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Car, error)
	Update(ctx context.Context, car *domain.Car) error
	Delete(ctx context.Context, id string) error

	// Transfer блокирует строку автомобиля, вызывает fn и атомарно
	// сохраняет запись журнала и новое состояние автомобиля
	Transfer(ctx context.Context, carID string, fn TransferFunc) (*domain.Car, *domain.Transaction, error)
}

// LedgerRepository — чтение журнала сделок; запись только через CarRepository.Transfer
type LedgerRepository interface {
	ListByParty(ctx context.Context, partyID string) ([]*domain.Transaction, error)
	ListByCar(ctx context.Context, carID string) ([]*domain.Transaction, error)
}

// BookingRepository — записи на тест-драйв
type BookingRepository interface {
	// Reserve под блокировкой автомобиля и пользователя собирает счетчики,
	// проверяет их политикой и сохраняет запись
	Reserve(ctx context.Context, b *domain.Booking, policy domain.AdmissionPolicy, quotaSince time.Time) error
	FindByID(ctx context.Context, id string) (*domain.Booking, error)
	// Mutate блокирует запись, применяет fn и сохраняет результат.
	// При смене слота проверяет, что новый слот свободен.
	Mutate(ctx context.Context, id string, fn func(b *domain.Booking) error) (*domain.Booking, error)
	// Reschedule как Mutate, но новый слот проверяется политикой AdmitMove
	Reschedule(ctx context.Context, id string, policy domain.AdmissionPolicy, fn func(b *domain.Booking) error) (*domain.Booking, error)
	ListActiveByCar(ctx context.Context, carID string) ([]*domain.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Booking, error)
	// ListByStatus возвращает все записи, если status пустой
	ListByStatus(ctx context.Context, status domain.BookingStatus) ([]*domain.Booking, error)
	ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]*domain.Booking, error)
	// ClaimReminder условно проставляет маркер; false — уже отправлено или запись неактивна
	ClaimReminder(ctx context.Context, id string, r domain.Reminder, at time.Time) (bool, error)
	CompleteElapsed(ctx context.Context, before, at time.Time) (int64, error)
}
