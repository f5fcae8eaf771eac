package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType — направление сделки относительно дилера
type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

// Transaction — неизменяемая запись журнала, ровно одна на смену владельца
type Transaction struct {
	ID              string          `json:"id"`
	CarID           string          `json:"carId"`
	CarBrand        string          `json:"carBrand"`
	CarModel        string          `json:"carModel"`
	Seller          Party           `json:"seller"`
	Buyer           Party           `json:"buyer"`
	TransactionType TransactionType `json:"transactionType"`
	Price           decimal.Decimal `json:"price"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func newTransaction(c *Car, t TransactionType, seller, buyer Party, now time.Time) *Transaction {
	return &Transaction{
		ID:              uuid.NewString(),
		CarID:           c.ID,
		CarBrand:        c.Brand,
		CarModel:        c.Model,
		Seller:          seller,
		Buyer:           buyer,
		TransactionType: t,
		Price:           c.Price,
		CreatedAt:       now,
	}
}
