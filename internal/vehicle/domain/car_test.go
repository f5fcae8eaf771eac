package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func attrs() CarAttributes {
	return CarAttributes{
		Brand: "Toyota",
		Model: "Corolla",
		Year:  2022,
		Color: "white",
		Price: decimal.RequireFromString("18500.00"),
	}
}

func dealerParty() Party {
	return Party{ID: "dealer-1", Type: OwnerDealer, Email: "sales@kpgroup.example"}
}

func userParty(id string) Party {
	return Party{ID: id, Type: OwnerUser, Email: id + "@example.com"}
}

func TestNewCar_DealerListsForSale(t *testing.T) {
	car, err := NewCar(attrs(), dealerParty(), "KP Group", t0)
	require.NoError(t, err)

	assert.Equal(t, CarForSale, car.Status)
	assert.True(t, car.OpenForTestDrive())
	assert.True(t, car.IsAvailableForSale)
	assert.Equal(t, "dealer-1", car.CurrentOwnerID)
}

func TestNewCar_UserRegistersOwnCar(t *testing.T) {
	car, err := NewCar(attrs(), userParty("u-1"), "KP Group", t0)
	require.NoError(t, err)

	assert.Equal(t, CarSold, car.Status)
	assert.Equal(t, OwnerUser, car.CurrentOwnerType)
	assert.False(t, car.AvailableForTestDrive)
	assert.False(t, car.PurchasableFromDealer())
}

func TestNewCar_RejectsBadAttributes(t *testing.T) {
	a := attrs()
	a.Brand = " "
	_, err := NewCar(a, dealerParty(), "KP Group", t0)
	assert.ErrorIs(t, err, ErrValidation)

	a = attrs()
	a.Price = decimal.NewFromInt(-1)
	_, err = NewCar(a, dealerParty(), "KP Group", t0)
	assert.ErrorIs(t, err, ErrInvalidCar)
}

func TestCar_PurchaseThenSellRoundTrip(t *testing.T) {
	car, err := NewCar(attrs(), dealerParty(), "KP Group", t0)
	require.NoError(t, err)

	buy, err := car.Purchase(userParty("u-1"), t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, TransactionBuy, buy.TransactionType)
	assert.Equal(t, "dealer-1", buy.Seller.ID)
	assert.Equal(t, "u-1", buy.Buyer.ID)
	assert.True(t, buy.Price.Equal(decimal.RequireFromString("18500")))

	assert.Equal(t, CarSold, car.Status)
	assert.Equal(t, "u-1", car.CurrentOwnerID)
	assert.Equal(t, "dealer-1", car.PreviousOwnerID)
	assert.False(t, car.AvailableForTestDrive)
	assert.False(t, car.IsAvailableForSale)

	_, err = car.Purchase(userParty("u-2"), t0.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrNotForSale)
	assert.ErrorIs(t, err, ErrUnauthorized)

	sell, err := car.SellToDealer(Party{ID: "u-1", Type: OwnerUser}, dealerParty(), t0.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, TransactionSell, sell.TransactionType)
	assert.Equal(t, "u-1@example.com", sell.Seller.Email)
	assert.Equal(t, "dealer-1", sell.Buyer.ID)

	assert.Equal(t, CarForSale, car.Status)
	assert.Equal(t, OwnerDealer, car.CurrentOwnerType)
	assert.Equal(t, "u-1", car.PreviousOwnerID)
	assert.True(t, car.OpenForTestDrive())
}

func TestCar_SellRequiresOwner(t *testing.T) {
	car, err := NewCar(attrs(), userParty("u-1"), "KP Group", t0)
	require.NoError(t, err)

	_, err = car.SellToDealer(userParty("u-2"), dealerParty(), t0)
	assert.ErrorIs(t, err, ErrNotOwner)

	listed, err := NewCar(attrs(), dealerParty(), "KP Group", t0)
	require.NoError(t, err)
	_, err = listed.SellToDealer(dealerParty(), dealerParty(), t0)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestCar_UpdateKeepsOwnership(t *testing.T) {
	car, err := NewCar(attrs(), dealerParty(), "KP Group", t0)
	require.NoError(t, err)

	a := attrs()
	a.Color = "red"
	a.SpareParts = []string{"mirror"}
	require.NoError(t, car.Update(a, t0.Add(time.Minute)))

	assert.Equal(t, "red", car.Color)
	assert.Equal(t, []string{"mirror"}, car.SpareParts)
	assert.Equal(t, "dealer-1", car.CurrentOwnerID)
	assert.Equal(t, CarForSale, car.Status)
}
