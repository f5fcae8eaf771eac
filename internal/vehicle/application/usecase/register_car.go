package usecase

import (
	"context"
	"fmt"

	"carmarket/internal/shared/logger"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"
)

// RegisterCarService реализует RegisterCarUseCase
type RegisterCarService struct {
	cars       out.CarRepository
	dealerName string
	now        clock
	log        *logger.Logger
}

// NewRegisterCarService создает сервис регистрации автомобиля
func NewRegisterCarService(cars out.CarRepository, dealerName string, log *logger.Logger) *RegisterCarService {
	return &RegisterCarService{cars: cars, dealerName: dealerName, now: systemClock, log: log}
}

// Execute: дилер выставляет автомобиль на продажу, пользователь регистрирует свой
func (s *RegisterCarService) Execute(ctx context.Context, input in.RegisterCarInput) (*in.CarOutput, error) {
	p := input.Principal
	owner := domain.Party{ID: p.UserID, Type: domain.OwnerUser, Email: p.Email}
	if p.IsDealer() {
		owner.Type = domain.OwnerDealer
	}

	car, err := domain.NewCar(input.Attributes, owner, s.dealerName, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.cars.Create(ctx, car); err != nil {
		s.log.Error(logger.Entry{
			Action:  "create_car_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, fmt.Errorf("create car: %w", err)
	}

	s.log.Info(logger.Entry{
		Action:  "car_registered",
		Message: car.Brand + " " + car.Model,
		CarID:   car.ID,
		Additional: map[string]any{
			"owner_id":   car.CurrentOwnerID,
			"owner_type": string(car.CurrentOwnerType),
			"status":     string(car.Status),
		},
	})
	return &in.CarOutput{Car: car}, nil
}
