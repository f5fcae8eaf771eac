package usecase

import (
	"context"
	"fmt"

	"carmarket/internal/shared/logger"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"
)

// ListBookingsService реализует ListBookingsUseCase
type ListBookingsService struct {
	bookings out.BookingRepository
	log      *logger.Logger
}

// NewListBookingsService создает сервис выборки записей
func NewListBookingsService(bookings out.BookingRepository, log *logger.Logger) *ListBookingsService {
	return &ListBookingsService{bookings: bookings, log: log}
}

// Execute: по пользователю — сам пользователь или дилер; по статусу и все — только дилер
func (s *ListBookingsService) Execute(ctx context.Context, input in.ListBookingsInput) (*in.ListBookingsOutput, error) {
	var (
		list []*domain.Booking
		err  error
	)

	switch {
	case input.UserID != "":
		if !input.Principal.IsDealer() && !input.Principal.Owns(input.UserID) {
			return nil, domain.ErrForbidden
		}
		list, err = s.bookings.ListByUser(ctx, input.UserID)
	default:
		if err := requireDealer(input.Principal); err != nil {
			return nil, err
		}
		list, err = s.bookings.ListByStatus(ctx, input.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	if input.UserID != "" && input.Status != "" {
		filtered := list[:0]
		for _, b := range list {
			if b.Status == input.Status {
				filtered = append(filtered, b)
			}
		}
		list = filtered
	}

	return &in.ListBookingsOutput{Bookings: list, Count: len(list)}, nil
}
