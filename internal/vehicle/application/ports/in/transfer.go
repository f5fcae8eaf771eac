package in

import (
	"context"

	"carmarket/internal/shared/auth"
	"carmarket/internal/vehicle/domain"
)

// TransferInput — покупка у дилера или продажа дилеру
type TransferInput struct {
	Principal auth.Principal
	CarID     string
}

// TransferOutput — запись журнала и новое состояние автомобиля
type TransferOutput struct {
	Transaction *domain.Transaction `json:"transaction"`
	Car         *domain.Car         `json:"car"`
}

// BuyCarUseCase — покупка автомобиля у дилера
type BuyCarUseCase interface {
	Execute(ctx context.Context, input TransferInput) (*TransferOutput, error)
}

// SellCarUseCase — продажа автомобиля дилеру
type SellCarUseCase interface {
	Execute(ctx context.Context, input TransferInput) (*TransferOutput, error)
}
