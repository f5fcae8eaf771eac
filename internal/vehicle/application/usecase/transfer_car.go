package usecase

import (
	"context"
	"fmt"

	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"
)

type bookingCanceller interface {
	Execute(ctx context.Context, carID, reason string) (int, error)
}

// BuyCarService реализует BuyCarUseCase
type BuyCarService struct {
	cars      out.CarRepository
	directory out.IdentityDirectory
	cascade   bookingCanceller
	notifier  out.Notifier
	now       clock
	log       *logger.Logger
}

// NewBuyCarService создает сервис покупки у дилера
func NewBuyCarService(
	cars out.CarRepository,
	directory out.IdentityDirectory,
	cascade bookingCanceller,
	notifier out.Notifier,
	log *logger.Logger,
) *BuyCarService {
	return &BuyCarService{cars: cars, directory: directory, cascade: cascade, notifier: notifier, now: systemClock, log: log}
}

// Execute отменяет записи на тест-драйв и атомарно передает автомобиль покупателю
func (s *BuyCarService) Execute(ctx context.Context, input in.TransferInput) (*in.TransferOutput, error) {
	car, err := s.cars.FindByID(ctx, input.CarID)
	if err != nil {
		return nil, err
	}
	if !car.PurchasableFromDealer() {
		return nil, domain.ErrNotForSale
	}

	buyer, err := resolveUser(ctx, s.directory, input.Principal)
	if err != nil {
		return nil, err
	}

	if car.AvailableForTestDrive {
		if _, err := s.cascade.Execute(ctx, car.ID, CarSoldReason); err != nil {
			return nil, fmt.Errorf("cancel test drives before sale: %w", err)
		}
	}

	party := domain.Party{ID: buyer.UserID, Type: domain.OwnerUser, Email: buyer.Email}
	updated, tx, err := s.cars.Transfer(ctx, car.ID, func(c *domain.Car) (*domain.Transaction, error) {
		return c.Purchase(party, s.now())
	})
	if err != nil {
		s.log.Warn(logger.Entry{
			Action:     "car_purchase_failed",
			Message:    err.Error(),
			CarID:      car.ID,
			Error:      &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{"buyer_id": buyer.UserID},
		})
		return nil, err
	}

	// записи, созданные между каскадом и коммитом продажи
	if n, err := s.cascade.Execute(ctx, car.ID, CarSoldReason); err != nil {
		s.log.Error(logger.Entry{
			Action:  "late_bookings_cancel_failed",
			Message: err.Error(),
			CarID:   car.ID,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	} else if n > 0 {
		s.log.Warn(logger.Entry{
			Action:     "late_bookings_cancelled",
			Message:    "bookings created during sale were cancelled",
			CarID:      car.ID,
			Additional: map[string]any{"count": n},
		})
	}

	s.log.Info(logger.Entry{
		Action:  "car_purchased",
		Message: "car sold to user",
		CarID:   updated.ID,
		Additional: map[string]any{
			"transaction_id": tx.ID,
			"buyer_id":       tx.Buyer.ID,
			"seller_id":      tx.Seller.ID,
			"price":          tx.Price.StringFixed(2),
		},
	})

	sendBestEffort(ctx, s.notifier, s.log, notify.Message{
		To:   tx.Buyer.Email,
		Kind: notify.KindCarPurchased,
		Fields: map[string]string{
			"brand":          tx.CarBrand,
			"model":          tx.CarModel,
			"price":          tx.Price.StringFixed(2),
			"transaction_id": tx.ID,
		},
	}, "")

	return &in.TransferOutput{Transaction: tx, Car: updated}, nil
}

// SellCarService реализует SellCarUseCase
type SellCarService struct {
	cars       out.CarRepository
	directory  out.IdentityDirectory
	notifier   out.Notifier
	dealerName string
	now        clock
	log        *logger.Logger
}

// NewSellCarService создает сервис продажи дилеру
func NewSellCarService(
	cars out.CarRepository,
	directory out.IdentityDirectory,
	notifier out.Notifier,
	dealerName string,
	log *logger.Logger,
) *SellCarService {
	return &SellCarService{cars: cars, directory: directory, notifier: notifier, dealerName: dealerName, now: systemClock, log: log}
}

// Execute атомарно передает автомобиль пользователя основному дилеру
func (s *SellCarService) Execute(ctx context.Context, input in.TransferInput) (*in.TransferOutput, error) {
	car, err := s.cars.FindByID(ctx, input.CarID)
	if err != nil {
		return nil, err
	}

	seller, err := resolveUser(ctx, s.directory, input.Principal)
	if err != nil {
		return nil, err
	}
	if car.CurrentOwnerID != seller.UserID {
		return nil, domain.ErrNotOwner
	}

	dealer, err := s.cars.FindPrimaryDealer(ctx, s.dealerName)
	if err != nil {
		return nil, err
	}

	party := domain.Party{ID: seller.UserID, Type: domain.OwnerUser, Email: seller.Email}
	updated, tx, err := s.cars.Transfer(ctx, car.ID, func(c *domain.Car) (*domain.Transaction, error) {
		return c.SellToDealer(party, *dealer, s.now())
	})
	if err != nil {
		s.log.Warn(logger.Entry{
			Action:     "car_sale_failed",
			Message:    err.Error(),
			CarID:      car.ID,
			Error:      &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{"seller_id": seller.UserID},
		})
		return nil, err
	}

	s.log.Info(logger.Entry{
		Action:  "car_bought_back",
		Message: "car sold to dealer",
		CarID:   updated.ID,
		Additional: map[string]any{
			"transaction_id": tx.ID,
			"seller_id":      tx.Seller.ID,
			"dealer_id":      tx.Buyer.ID,
			"price":          tx.Price.StringFixed(2),
		},
	})

	sendBestEffort(ctx, s.notifier, s.log, notify.Message{
		To:   tx.Seller.Email,
		Kind: notify.KindCarSold,
		Fields: map[string]string{
			"brand":          tx.CarBrand,
			"model":          tx.CarModel,
			"price":          tx.Price.StringFixed(2),
			"transaction_id": tx.ID,
			"dealer_name":    s.dealerName,
		},
	}, "")

	return &in.TransferOutput{Transaction: tx, Car: updated}, nil
}
