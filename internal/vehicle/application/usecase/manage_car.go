package usecase

import (
	"context"
	"fmt"

	"carmarket/internal/shared/logger"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
)

// UpdateCarService реализует UpdateCarUseCase; поля владения не меняются
type UpdateCarService struct {
	cars out.CarRepository
	now  clock
	log  *logger.Logger
}

// NewUpdateCarService создает сервис изменения автомобиля
func NewUpdateCarService(cars out.CarRepository, log *logger.Logger) *UpdateCarService {
	return &UpdateCarService{cars: cars, now: systemClock, log: log}
}

func (s *UpdateCarService) Execute(ctx context.Context, input in.UpdateCarInput) (*in.CarOutput, error) {
	if err := requireDealer(input.Principal); err != nil {
		return nil, err
	}

	car, err := s.cars.FindByID(ctx, input.CarID)
	if err != nil {
		return nil, err
	}
	if err := car.Update(input.Attributes, s.now()); err != nil {
		return nil, err
	}
	if err := s.cars.Update(ctx, car); err != nil {
		return nil, fmt.Errorf("update car: %w", err)
	}

	s.log.Info(logger.Entry{Action: "car_updated", Message: car.Brand + " " + car.Model, CarID: car.ID})
	return &in.CarOutput{Car: car}, nil
}

// CarRemovedReason — причина отмены записей при удалении автомобиля
const CarRemovedReason = "We apologize, but the car you were scheduled to test drive is no longer available."

// DeleteCarService реализует DeleteCarUseCase.
// Журнал и записи на тест-драйв хранят денормализованные данные и не удаляются.
type DeleteCarService struct {
	cars    out.CarRepository
	cascade bookingCanceller
	log     *logger.Logger
}

// NewDeleteCarService создает сервис удаления автомобиля
func NewDeleteCarService(cars out.CarRepository, cascade bookingCanceller, log *logger.Logger) *DeleteCarService {
	return &DeleteCarService{cars: cars, cascade: cascade, log: log}
}

func (s *DeleteCarService) Execute(ctx context.Context, input in.DeleteCarInput) error {
	if err := requireDealer(input.Principal); err != nil {
		return err
	}
	if err := s.cars.Delete(ctx, input.CarID); err != nil {
		return err
	}
	if _, err := s.cascade.Execute(ctx, input.CarID, CarRemovedReason); err != nil {
		s.log.Error(logger.Entry{
			Action:  "cascade_after_delete_failed",
			Message: err.Error(),
			CarID:   input.CarID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	s.log.Info(logger.Entry{
		Action:     "car_deleted",
		Message:    "car removed from catalog",
		CarID:      input.CarID,
		Additional: map[string]any{"dealer_id": input.Principal.UserID},
	})
	return nil
}
