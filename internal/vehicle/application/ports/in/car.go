package in

import (
	"context"

	"carmarket/internal/shared/auth"
	"carmarket/internal/vehicle/domain"
)

// RegisterCarInput — регистрация автомобиля
type RegisterCarInput struct {
	Principal  auth.Principal
	Attributes domain.CarAttributes
}

// CarOutput — один автомобиль
type CarOutput struct {
	Car *domain.Car `json:"car"`
}

type RegisterCarUseCase interface {
	Execute(ctx context.Context, input RegisterCarInput) (*CarOutput, error)
}

type GetCarUseCase interface {
	Execute(ctx context.Context, id string) (*CarOutput, error)
}

// ListCarsInput — простая постраничная выборка
type ListCarsInput struct {
	Limit  int
	Offset int
}

type ListCarsOutput struct {
	Cars   []*domain.Car `json:"cars"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type ListCarsUseCase interface {
	Execute(ctx context.Context, input ListCarsInput) (*ListCarsOutput, error)
}

type ListAvailableCarsUseCase interface {
	Execute(ctx context.Context) (*ListCarsOutput, error)
}

// UpdateCarInput — изменение описательных полей дилером
type UpdateCarInput struct {
	Principal  auth.Principal
	CarID      string
	Attributes domain.CarAttributes
}

type UpdateCarUseCase interface {
	Execute(ctx context.Context, input UpdateCarInput) (*CarOutput, error)
}

// DeleteCarInput — удаление автомобиля дилером
type DeleteCarInput struct {
	Principal auth.Principal
	CarID     string
}

type DeleteCarUseCase interface {
	Execute(ctx context.Context, input DeleteCarInput) error
}
