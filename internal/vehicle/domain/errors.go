package domain

import (
	"errors"
	"fmt"
)

// Категории ошибок; транспорт маппит их на HTTP статусы через errors.Is
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrInvalidState  = errors.New("invalid state")
	ErrValidation    = errors.New("validation failed")
)

var (
	// ErrCarNotFound возвращается когда автомобиль не найден
	ErrCarNotFound = fmt.Errorf("car %w", ErrNotFound)

	// ErrBookingNotFound возвращается когда тест-драйв не найден
	ErrBookingNotFound = fmt.Errorf("test drive %w", ErrNotFound)

	// ErrDealerNotFound — нет автомобиля, закрепленного за основным дилером
	ErrDealerNotFound = fmt.Errorf("dealer %w", ErrNotFound)

	// ErrUserNotFound — identity сервис не знает такого email
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// ErrSlotTaken слот уже занят активным бронированием
	ErrSlotTaken = fmt.Errorf("%w: time slot already booked", ErrConflict)

	// ErrDailyCapacity на эту дату для автомобиля больше нет мест
	ErrDailyCapacity = fmt.Errorf("%w: no test drive slots left for this day", ErrConflict)

	// ErrNotOpenForTestDrive автомобиль продан или снят с тест-драйвов
	ErrNotOpenForTestDrive = fmt.Errorf("%w: car is not available for test drives", ErrConflict)

	// ErrBookingQuota пользователь исчерпал месячный лимит
	ErrBookingQuota = fmt.Errorf("%w: monthly test drive limit reached", ErrQuotaExceeded)

	// ErrNotForSale автомобиль нельзя купить в текущем состоянии
	ErrNotForSale = fmt.Errorf("%w: car is not available for purchase", ErrUnauthorized)

	// ErrNotOwner действие доступно только владельцу
	ErrNotOwner = fmt.Errorf("%w: you do not own this car", ErrUnauthorized)

	// ErrDealerOnly действие доступно только дилеру
	ErrDealerOnly = fmt.Errorf("%w: dealer role required", ErrUnauthorized)

	// ErrForbidden нет прав на чужой ресурс
	ErrForbidden = fmt.Errorf("%w: not allowed to act on this resource", ErrUnauthorized)

	// ErrInvalidSchedule дата или время не распознаны либо уже в прошлом
	ErrInvalidSchedule = fmt.Errorf("%w: invalid schedule", ErrValidation)

	// ErrInvalidCar некорректные атрибуты автомобиля
	ErrInvalidCar = fmt.Errorf("%w: invalid car attributes", ErrValidation)
)
