package in

import (
	"context"

	"carmarket/internal/shared/auth"
	"carmarket/internal/vehicle/domain"
)

// CreateBookingInput — запись на тест-драйв; CarID имеет приоритет над брендом
type CreateBookingInput struct {
	Principal auth.Principal
	CarID     string
	CarBrand  string
	Date      string
	Time      string
}

// BookingAck — подтверждение операции над записью
type BookingAck struct {
	Message   string               `json:"message"`
	BookingID string               `json:"bookingId"`
	Status    domain.BookingStatus `json:"status"`
}

// CreateBookingUseCase — интерфейс use case записи на тест-драйв
type CreateBookingUseCase interface {
	Execute(ctx context.Context, input CreateBookingInput) (*BookingAck, error)
}

// ConfirmBookingInput — подтверждение дилером
type ConfirmBookingInput struct {
	Principal auth.Principal
	BookingID string
}

type ConfirmBookingUseCase interface {
	Execute(ctx context.Context, input ConfirmBookingInput) (*BookingAck, error)
}

// RescheduleBookingInput — перенос записи
type RescheduleBookingInput struct {
	Principal auth.Principal
	BookingID string
	Date      string
	Time      string
}

type RescheduleBookingUseCase interface {
	Execute(ctx context.Context, input RescheduleBookingInput) (*BookingAck, error)
}

// CancelBookingInput — отмена владельцем или дилером
type CancelBookingInput struct {
	Principal auth.Principal
	BookingID string
	Reason    string
}

type CancelBookingUseCase interface {
	Execute(ctx context.Context, input CancelBookingInput) (*BookingAck, error)
}

// ListBookingsInput — пустой Status и UserID означают все записи
type ListBookingsInput struct {
	Principal auth.Principal
	Status    domain.BookingStatus
	UserID    string
}

type ListBookingsOutput struct {
	Bookings []*domain.Booking `json:"bookings"`
	Count    int               `json:"count"`
}

type ListBookingsUseCase interface {
	Execute(ctx context.Context, input ListBookingsInput) (*ListBookingsOutput, error)
}

// SweepOutput — итог одного прохода фоновой задачи
type SweepOutput struct {
	Processed int
	Failed    int
}

// SweepUseCase — периодическая задача планировщика
type SweepUseCase interface {
	Execute(ctx context.Context) (*SweepOutput, error)
}
