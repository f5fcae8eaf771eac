package usecase

import (
	"context"
	"testing"
	"time"

	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func carAttrs(brand string) domain.CarAttributes {
	return domain.CarAttributes{
		Brand: brand,
		Model: "Civic",
		Year:  2021,
		Color: "blue",
		Price: decimal.RequireFromString("15999.99"),
	}
}

func TestRegisterCar_RoleDecidesListing(t *testing.T) {
	f := newFixture()
	svc := NewRegisterCarService(f.store, testDealer.Name, logger.NewNop())
	svc.now = fixedClock

	listed, err := svc.Execute(context.Background(), in.RegisterCarInput{Principal: dealerPrincipal, Attributes: carAttrs("Honda")})
	require.NoError(t, err)
	assert.Equal(t, domain.CarForSale, listed.Car.Status)
	assert.Equal(t, domain.OwnerDealer, listed.Car.CurrentOwnerType)
	assert.True(t, listed.Car.OpenForTestDrive())

	own, err := svc.Execute(context.Background(), in.RegisterCarInput{Principal: userPrincipal("asha"), Attributes: carAttrs("Honda")})
	require.NoError(t, err)
	assert.Equal(t, domain.CarSold, own.Car.Status)
	assert.Equal(t, "asha", own.Car.CurrentOwnerID)
	assert.False(t, own.Car.AvailableForTestDrive)

	bad := carAttrs("")
	_, err = svc.Execute(context.Background(), in.RegisterCarInput{Principal: dealerPrincipal, Attributes: bad})
	assert.ErrorIs(t, err, domain.ErrValidation)

	available, err := NewListAvailableCarsService(f.store, logger.NewNop()).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, available.Cars, 1)
	assert.Equal(t, listed.Car.ID, available.Cars[0].ID)
}

func TestListCars_Paging(t *testing.T) {
	f := newFixture()
	for i := 0; i < 5; i++ {
		f.addDealerCar("Brand", testNow.Add(time.Duration(i)*time.Minute))
	}
	svc := NewListCarsService(f.store, logger.NewNop())

	page, err := svc.Execute(context.Background(), in.ListCarsInput{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Cars, 1)

	def, err := svc.Execute(context.Background(), in.ListCarsInput{Limit: 1000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, maxCarsLimit, def.Limit)
	assert.Equal(t, 0, def.Offset)
	assert.Len(t, def.Cars, 5)
}

func TestGetCar(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	svc := NewGetCarService(f.store, logger.NewNop())

	got, err := svc.Execute(context.Background(), car.ID)
	require.NoError(t, err)
	assert.Equal(t, car.ID, got.Car.ID)

	_, err = svc.Execute(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrCarNotFound)
}

func TestUpdateCar_DealerOnlyAndOwnershipUntouched(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	svc := NewUpdateCarService(f.store, logger.NewNop())
	svc.now = fixedClock

	_, err := svc.Execute(context.Background(), in.UpdateCarInput{Principal: userPrincipal("asha"), CarID: car.ID, Attributes: carAttrs("Toyota")})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	a := carAttrs("Toyota")
	a.Price = decimal.RequireFromString("21000")
	res, err := svc.Execute(context.Background(), in.UpdateCarInput{Principal: dealerPrincipal, CarID: car.ID, Attributes: a})
	require.NoError(t, err)
	assert.True(t, res.Car.Price.Equal(decimal.NewFromInt(21000)))
	assert.Equal(t, car.CurrentOwnerID, res.Car.CurrentOwnerID)
	assert.Equal(t, domain.CarForSale, res.Car.Status)
}

func TestDeleteCar_CancelsBookings(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	id := f.book(t, f.addUser("asha"), car.ID, "2026-10-20", "10:00")
	svc := NewDeleteCarService(f.store, f.cascadeService(), logger.NewNop())

	err := svc.Execute(context.Background(), in.DeleteCarInput{Principal: userPrincipal("asha"), CarID: car.ID})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, svc.Execute(context.Background(), in.DeleteCarInput{Principal: dealerPrincipal, CarID: car.ID}))

	_, err = f.store.FindByID(context.Background(), car.ID)
	assert.ErrorIs(t, err, domain.ErrCarNotFound)

	b := f.store.booking(id)
	assert.Equal(t, domain.BookingCancelled, b.Status)
	assert.Equal(t, "Toyota", b.CarBrand)
	assert.Len(t, f.notifier.byKind(notify.KindCarSoldApology), 1)

	err = svc.Execute(context.Background(), in.DeleteCarInput{Principal: dealerPrincipal, CarID: car.ID})
	assert.ErrorIs(t, err, domain.ErrCarNotFound)
}
