package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking_Success(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow.Add(-time.Hour))
	asha := f.addUser("asha")

	ack, err := f.createService().Execute(context.Background(), in.CreateBookingInput{
		Principal: asha,
		CarBrand:  "Toyota",
		Date:      "2026-10-20",
		Time:      "10:30",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, ack.Status)

	b := f.store.booking(ack.BookingID)
	require.NotNil(t, b)
	assert.Equal(t, car.ID, b.CarID)
	assert.Equal(t, "Toyota", b.CarBrand)
	assert.Equal(t, "asha", b.UserID)
	assert.Equal(t, testDealer.Name, b.DealerName)
	assert.Equal(t, testDealer.Address, b.DealerAddress)

	sent := f.notifier.byKind(notify.KindBookingReceived)
	require.Len(t, sent, 1)
	assert.Equal(t, "asha@example.com", sent[0].To)
	assert.Equal(t, "10:30", sent[0].Fields["time"])
	assert.Equal(t, []string{EventBookingCreated}, f.feed.types())
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	asha := f.addUser("asha")
	svc := f.createService()

	tests := []struct {
		name  string
		input in.CreateBookingInput
		want  error
	}{
		{"bad date", in.CreateBookingInput{Principal: asha, CarID: car.ID, Date: "20-10-2026", Time: "10:00"}, domain.ErrInvalidSchedule},
		{"bad time", in.CreateBookingInput{Principal: asha, CarID: car.ID, Date: "2026-10-20", Time: "25:00"}, domain.ErrInvalidSchedule},
		{"past", in.CreateBookingInput{Principal: asha, CarID: car.ID, Date: "2026-10-14", Time: "10:00"}, domain.ErrInvalidSchedule},
		{"no car key", in.CreateBookingInput{Principal: asha, Date: "2026-10-20", Time: "10:00"}, domain.ErrValidation},
		{"unknown brand", in.CreateBookingInput{Principal: asha, CarBrand: "Lada", Date: "2026-10-20", Time: "10:00"}, domain.ErrNotFound},
		{"unknown user", in.CreateBookingInput{Principal: userPrincipal("ghost"), CarID: car.ID, Date: "2026-10-20", Time: "10:00"}, domain.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Execute(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.notifier.sent)
}

func TestCreateBooking_BrandLookupPrefersOpenDealerCar(t *testing.T) {
	f := newFixture()
	sold := f.addDealerCar("Honda", testNow.Add(-48*time.Hour))
	sold.Status = domain.CarSold
	sold.CurrentOwnerType = domain.OwnerUser
	sold.AvailableForTestDrive = false
	require.NoError(t, f.store.Update(context.Background(), sold))
	open := f.addDealerCar("Honda", testNow.Add(-time.Hour))
	asha := f.addUser("asha")

	ack, err := f.createService().Execute(context.Background(), in.CreateBookingInput{
		Principal: asha, CarBrand: "Honda", Date: "2026-10-20", Time: "11:00",
	})
	require.NoError(t, err)
	assert.Equal(t, open.ID, f.store.booking(ack.BookingID).CarID)

	_, err = f.createService().Execute(context.Background(), in.CreateBookingInput{
		Principal: asha, CarID: sold.ID, Date: "2026-10-20", Time: "11:00",
	})
	assert.ErrorIs(t, err, domain.ErrNotOpenForTestDrive)
}

func TestCreateBooking_SlotConflict(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	f.book(t, f.addUser("asha"), car.ID, "2026-10-20", "10:00")

	_, err := f.createService().Execute(context.Background(), in.CreateBookingInput{
		Principal: f.addUser("ben"), CarID: car.ID, Date: "2026-10-20", Time: "10:00",
	})
	assert.ErrorIs(t, err, domain.ErrSlotTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateBooking_CancelledSlotCanBeRebooked(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	asha := f.addUser("asha")
	id := f.book(t, asha, car.ID, "2026-10-20", "10:00")

	_, err := f.cancelService().Execute(context.Background(), in.CancelBookingInput{Principal: asha, BookingID: id})
	require.NoError(t, err)

	f.book(t, f.addUser("ben"), car.ID, "2026-10-20", "10:00")
}

func TestCreateBooking_DailyCapacity(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	for i := 0; i < 5; i++ {
		f.book(t, f.addUser(fmt.Sprintf("u%d", i)), car.ID, "2026-10-20", fmt.Sprintf("1%d:00", i))
	}

	_, err := f.createService().Execute(context.Background(), in.CreateBookingInput{
		Principal: f.addUser("late"), CarID: car.ID, Date: "2026-10-20", Time: "16:00",
	})
	assert.ErrorIs(t, err, domain.ErrDailyCapacity)

	f.book(t, f.addUser("next-day"), car.ID, "2026-10-21", "16:00")
}

func TestCreateBooking_MonthlyQuota(t *testing.T) {
	f := newFixture()
	asha := f.addUser("asha")
	for i := 0; i < 3; i++ {
		car := f.addDealerCar(fmt.Sprintf("Brand%d", i), testNow)
		f.book(t, asha, car.ID, "2026-10-20", "10:00")
	}
	extra := f.addDealerCar("Extra", testNow)

	_, err := f.createService().Execute(context.Background(), in.CreateBookingInput{
		Principal: asha, CarID: extra.ID, Date: "2026-10-22", Time: "10:00",
	})
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.NotErrorIs(t, err, domain.ErrConflict)
}

func TestCreateBooking_ConcurrentSameSlot(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	const n = 20
	users := make([]string, n)
	for i := range users {
		users[i] = fmt.Sprintf("racer%d", i)
		f.addUser(users[i])
	}
	svc := f.createService()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, u := range users {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.Execute(context.Background(), in.CreateBookingInput{
				Principal: userPrincipal(id), CarID: car.ID, Date: "2026-10-20", Time: "09:00",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	active, err := f.bookings.ListActiveByCar(context.Background(), car.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCreateBooking_NotifierFailureIsLoggedOnly(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("broker down")
	car := f.addDealerCar("Toyota", testNow)

	id := f.book(t, f.addUser("asha"), car.ID, "2026-10-20", "10:00")
	assert.NotNil(t, f.store.booking(id))
}

func TestConfirmBooking(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	asha := f.addUser("asha")
	id := f.book(t, asha, car.ID, "2026-10-20", "10:00")
	svc := f.confirmService()

	_, err := svc.Execute(context.Background(), in.ConfirmBookingInput{Principal: asha, BookingID: id})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	ack, err := svc.Execute(context.Background(), in.ConfirmBookingInput{Principal: dealerPrincipal, BookingID: id})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, ack.Status)

	_, err = svc.Execute(context.Background(), in.ConfirmBookingInput{Principal: dealerPrincipal, BookingID: id})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = svc.Execute(context.Background(), in.ConfirmBookingInput{Principal: dealerPrincipal, BookingID: "missing"})
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	sent := f.notifier.byKind(notify.KindBookingConfirmed)
	require.Len(t, sent, 1)
	assert.Equal(t, testDealer.Address, sent[0].Fields["dealer_address"])
}

func TestConfirmBooking_NotificationOutlivesRequest(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	id := f.book(t, f.addUser("asha"), car.ID, "2026-10-20", "10:00")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.confirmService().Execute(ctx, in.ConfirmBookingInput{Principal: dealerPrincipal, BookingID: id})
	require.NoError(t, err)

	require.Len(t, f.notifier.byKind(notify.KindBookingConfirmed), 1)
	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	assert.NoError(t, f.notifier.ctxErrs[len(f.notifier.ctxErrs)-1], "client disconnect must not cancel the publish")
}

func TestRescheduleBooking(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	asha := f.addUser("asha")
	ben := f.addUser("ben")
	id := f.book(t, asha, car.ID, "2026-10-20", "10:00")
	f.book(t, ben, car.ID, "2026-10-20", "12:00")
	svc := f.rescheduleService()

	_, err := svc.Execute(context.Background(), in.RescheduleBookingInput{Principal: ben, BookingID: id, Date: "2026-10-21", Time: "10:00"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Execute(context.Background(), in.RescheduleBookingInput{Principal: asha, BookingID: id, Date: "2026-10-20", Time: "12:00"})
	assert.ErrorIs(t, err, domain.ErrSlotTaken)

	_, err = svc.Execute(context.Background(), in.RescheduleBookingInput{Principal: asha, BookingID: id, Date: "2026-10-01", Time: "12:00"})
	assert.ErrorIs(t, err, domain.ErrInvalidSchedule)

	ack, err := svc.Execute(context.Background(), in.RescheduleBookingInput{Principal: asha, BookingID: id, Date: "2026-10-21", Time: "15:00"})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, ack.Status)

	b := f.store.booking(id)
	assert.True(t, b.IsRescheduled)
	assert.Equal(t, "2026-10-21", b.Date)
	assert.Equal(t, "15:00", b.Time)

	_, err = svc.Execute(context.Background(), in.RescheduleBookingInput{Principal: dealerPrincipal, BookingID: id, Date: "2026-10-20", Time: "10:00"})
	require.NoError(t, err, "dealer may reschedule and the old slot is free again")
	assert.Len(t, f.notifier.byKind(notify.KindBookingRescheduled), 2)
}

func TestRescheduleBooking_RespectsDailyCapacity(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	for i, clock := range []string{"09:00", "10:00", "11:00", "12:00", "13:00"} {
		f.book(t, f.addUser(fmt.Sprintf("u%d", i)), car.ID, "2026-10-22", clock)
	}
	asha := f.addUser("asha")
	id := f.book(t, asha, car.ID, "2026-10-21", "10:00")
	svc := f.rescheduleService()

	_, err := svc.Execute(context.Background(), in.RescheduleBookingInput{Principal: asha, BookingID: id, Date: "2026-10-22", Time: "16:00"})
	assert.ErrorIs(t, err, domain.ErrDailyCapacity)
	assert.Equal(t, "2026-10-21", f.store.booking(id).Date)
	assert.Empty(t, f.notifier.byKind(notify.KindBookingRescheduled))

	full, err := f.store.ListByStatus(context.Background(), "")
	require.NoError(t, err)
	onDay := 0
	for _, b := range full {
		if b.Date == "2026-10-22" && b.Status.Active() {
			onDay++
		}
	}
	assert.Equal(t, 5, onDay)

	_, err = svc.Execute(context.Background(), in.RescheduleBookingInput{Principal: asha, BookingID: id, Date: "2026-10-21", Time: "17:00"})
	require.NoError(t, err, "moving within its own day does not count the booking twice")
}

func TestCancelBooking_WordingDependsOnCanceller(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	asha := f.addUser("asha")
	first := f.book(t, asha, car.ID, "2026-10-20", "10:00")
	second := f.book(t, asha, car.ID, "2026-10-20", "11:00")
	svc := f.cancelService()

	_, err := svc.Execute(context.Background(), in.CancelBookingInput{Principal: f.addUser("ben"), BookingID: first})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Execute(context.Background(), in.CancelBookingInput{Principal: asha, BookingID: first, Reason: "schedule clash"})
	require.NoError(t, err)
	_, err = svc.Execute(context.Background(), in.CancelBookingInput{Principal: dealerPrincipal, BookingID: second})
	require.NoError(t, err)

	byUser := f.notifier.byKind(notify.KindBookingCancelled)
	require.Len(t, byUser, 1)
	assert.Equal(t, "schedule clash", byUser[0].Fields["reason"])

	byDealer := f.notifier.byKind(notify.KindDealerCancelled)
	require.Len(t, byDealer, 1)
	assert.Equal(t, defaultDealerCancelReason, byDealer[0].Fields["reason"])

	_, err = svc.Execute(context.Background(), in.CancelBookingInput{Principal: asha, BookingID: first})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCascadeCancel_OneApologyPerBooking(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	other := f.addDealerCar("Honda", testNow)
	a := f.book(t, f.addUser("asha"), car.ID, "2026-10-20", "10:00")
	b := f.book(t, f.addUser("ben"), car.ID, "2026-10-21", "10:00")
	keep := f.book(t, f.addUser("chen"), other.ID, "2026-10-20", "10:00")

	_, err := f.confirmService().Execute(context.Background(), in.ConfirmBookingInput{Principal: dealerPrincipal, BookingID: b})
	require.NoError(t, err)

	n, err := f.cascadeService().Execute(context.Background(), car.ID, CarSoldReason)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []string{a, b} {
		got := f.store.booking(id)
		assert.Equal(t, domain.BookingCancelled, got.Status)
		assert.Equal(t, CarSoldReason, got.CancellationReason)
	}
	assert.Equal(t, domain.BookingPending, f.store.booking(keep).Status)

	apologies := f.notifier.byKind(notify.KindCarSoldApology)
	require.Len(t, apologies, 2)
	assert.Equal(t, CarSoldReason, apologies[0].Fields["reason"])

	n, err = f.cascadeService().Execute(context.Background(), car.ID, CarSoldReason)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.notifier.byKind(notify.KindCarSoldApology), 2)
}

func TestListBookings(t *testing.T) {
	f := newFixture()
	car := f.addDealerCar("Toyota", testNow)
	asha := f.addUser("asha")
	id := f.book(t, asha, car.ID, "2026-10-20", "10:00")
	f.book(t, f.addUser("ben"), car.ID, "2026-10-20", "11:00")
	_, err := f.confirmService().Execute(context.Background(), in.ConfirmBookingInput{Principal: dealerPrincipal, BookingID: id})
	require.NoError(t, err)

	svc := NewListBookingsService(f.bookings, logger.NewNop())

	pending, err := svc.Execute(context.Background(), in.ListBookingsInput{Principal: dealerPrincipal, Status: domain.BookingPending})
	require.NoError(t, err)
	assert.Equal(t, 1, pending.Count)

	all, err := svc.Execute(context.Background(), in.ListBookingsInput{Principal: dealerPrincipal})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Count)

	mine, err := svc.Execute(context.Background(), in.ListBookingsInput{Principal: asha, UserID: "asha"})
	require.NoError(t, err)
	require.Equal(t, 1, mine.Count)
	assert.Equal(t, id, mine.Bookings[0].ID)

	_, err = svc.Execute(context.Background(), in.ListBookingsInput{Principal: asha})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = svc.Execute(context.Background(), in.ListBookingsInput{Principal: asha, UserID: "ben"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
