package usecase

import (
	"context"
	"fmt"

	"carmarket/internal/shared/logger"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
)

const (
	defaultCarsLimit = 20
	maxCarsLimit     = 100
)

// GetCarService реализует GetCarUseCase
type GetCarService struct {
	cars out.CarRepository
	log  *logger.Logger
}

func NewGetCarService(cars out.CarRepository, log *logger.Logger) *GetCarService {
	return &GetCarService{cars: cars, log: log}
}

func (s *GetCarService) Execute(ctx context.Context, id string) (*in.CarOutput, error) {
	car, err := s.cars.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &in.CarOutput{Car: car}, nil
}

// ListCarsService реализует ListCarsUseCase
type ListCarsService struct {
	cars out.CarRepository
	log  *logger.Logger
}

func NewListCarsService(cars out.CarRepository, log *logger.Logger) *ListCarsService {
	return &ListCarsService{cars: cars, log: log}
}

func (s *ListCarsService) Execute(ctx context.Context, input in.ListCarsInput) (*in.ListCarsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultCarsLimit
	}
	if limit > maxCarsLimit {
		limit = maxCarsLimit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	cars, total, err := s.cars.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	return &in.ListCarsOutput{Cars: cars, Total: total, Limit: limit, Offset: offset}, nil
}

// ListAvailableCarsService — автомобили дилера, открытые для тест-драйва
type ListAvailableCarsService struct {
	cars out.CarRepository
	log  *logger.Logger
}

func NewListAvailableCarsService(cars out.CarRepository, log *logger.Logger) *ListAvailableCarsService {
	return &ListAvailableCarsService{cars: cars, log: log}
}

func (s *ListAvailableCarsService) Execute(ctx context.Context) (*in.ListCarsOutput, error) {
	cars, err := s.cars.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list available cars: %w", err)
	}
	return &in.ListCarsOutput{Cars: cars, Total: len(cars), Limit: len(cars)}, nil
}
