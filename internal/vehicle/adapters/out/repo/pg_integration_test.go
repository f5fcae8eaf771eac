//go:build integration

package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	db_conn "carmarket/internal/shared/db"
	"carmarket/internal/shared/logger"
	"carmarket/internal/vehicle/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Запуск: DATABASE_URL=postgres://... go test -tags integration ./internal/vehicle/adapters/out/repo/

var testDealer = domain.Dealer{Name: "KP Group", Address: "12 Ring Road"}

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db_conn.Migrate(ctx, pool, logger.NewNop()))
	return pool
}

type pgFixture struct {
	cars     *CarPgRepository
	ledger   *LedgerPgRepository
	bookings *BookingPgRepository
	pool     *pgxpool.Pool
	now      time.Time
}

func newPgFixture(t *testing.T) *pgFixture {
	pool := testPool(t)
	log := logger.NewNop()
	return &pgFixture{
		cars:     NewCarPgRepository(pool, log),
		ledger:   NewLedgerPgRepository(pool, log),
		bookings: NewBookingPgRepository(pool, log),
		pool:     pool,
		now:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (f *pgFixture) dealerCar(t *testing.T) *domain.Car {
	t.Helper()
	car, err := domain.NewCar(domain.CarAttributes{
		Brand: "Toyota",
		Model: "Corolla",
		Year:  2024,
		Price: decimal.RequireFromString("21500.00"),
	}, domain.Party{ID: "dealer-" + uuid.NewString(), Type: domain.OwnerDealer, Email: "sales@kpgroup.example"}, testDealer.Name, f.now)
	require.NoError(t, err)
	require.NoError(t, f.cars.Create(context.Background(), car))
	return car
}

func (f *pgFixture) newBooking(t *testing.T, car *domain.Car, userID, date, clock string) *domain.Booking {
	t.Helper()
	slot, err := domain.ParseSlot(date, clock, time.UTC, f.now)
	require.NoError(t, err)
	return domain.NewBooking(car, slot, userID, userID+"@example.com", testDealer, f.now)
}

func (f *pgFixture) reserve(ctx context.Context, b *domain.Booking) error {
	policy := domain.DefaultAdmissionPolicy()
	return f.bookings.Reserve(ctx, b, policy, policy.QuotaSince(f.now))
}

func newUserID() string { return "user-" + uuid.NewString() }

// runConcurrently запускает n функций одновременно и собирает ошибки
func runConcurrently(n int, fn func(i int) error) []error {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func countNil(errs []error) int {
	n := 0
	for _, err := range errs {
		if err == nil {
			n++
		}
	}
	return n
}

func TestReserve_ConcurrentSameSlotAdmitsOne(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	car := f.dealerCar(t)

	batch := make([]*domain.Booking, 10)
	for i := range batch {
		batch[i] = f.newBooking(t, car, newUserID(), "2099-03-10", "10:00")
	}
	errs := runConcurrently(len(batch), func(i int) error {
		return f.reserve(ctx, batch[i])
	})

	assert.Equal(t, 1, countNil(errs))
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrSlotTaken)
		}
	}

	active, err := f.bookings.ListActiveByCar(ctx, car.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestReserve_DailyCapacityUnderConcurrency(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	car := f.dealerCar(t)

	batch := make([]*domain.Booking, 8)
	for i := range batch {
		batch[i] = f.newBooking(t, car, newUserID(), "2099-03-11", fmt.Sprintf("%02d:00", 9+i))
	}
	errs := runConcurrently(len(batch), func(i int) error {
		return f.reserve(ctx, batch[i])
	})

	assert.Equal(t, 5, countNil(errs))
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrDailyCapacity)
		}
	}

	require.NoError(t, f.reserve(ctx, f.newBooking(t, car, newUserID(), "2099-03-12", "09:00")), "next day is free")
}

func TestReserve_UserQuotaUnderConcurrency(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	user := newUserID()

	batch := make([]*domain.Booking, 6)
	for i := range batch {
		batch[i] = f.newBooking(t, f.dealerCar(t), user, "2099-03-13", "10:00")
	}
	errs := runConcurrently(len(batch), func(i int) error {
		return f.reserve(ctx, batch[i])
	})

	assert.Equal(t, 3, countNil(errs))
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrBookingQuota)
		}
	}

	mine, err := f.bookings.ListByUser(ctx, user)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestReserve_CancelledSlotIsFreed(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	car := f.dealerCar(t)

	first := f.newBooking(t, car, newUserID(), "2099-03-14", "10:00")
	require.NoError(t, f.reserve(ctx, first))
	_, err := f.bookings.Mutate(ctx, first.ID, func(b *domain.Booking) error {
		return b.Cancel("changed plans", f.now)
	})
	require.NoError(t, err)

	require.NoError(t, f.reserve(ctx, f.newBooking(t, car, newUserID(), "2099-03-14", "10:00")))
}

func TestReschedule_ChecksSlotAndDailyCapacity(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	car := f.dealerCar(t)
	policy := domain.DefaultAdmissionPolicy()

	for i := 0; i < 5; i++ {
		require.NoError(t, f.reserve(ctx, f.newBooking(t, car, newUserID(), "2099-03-16", fmt.Sprintf("%02d:00", 9+i))))
	}
	moving := f.newBooking(t, car, newUserID(), "2099-03-15", "10:00")
	require.NoError(t, f.reserve(ctx, moving))

	move := func(date, clock string) error {
		slot, err := domain.ParseSlot(date, clock, time.UTC, f.now)
		require.NoError(t, err)
		_, err = f.bookings.Reschedule(ctx, moving.ID, policy, func(b *domain.Booking) error {
			return b.Reschedule(slot, f.now)
		})
		return err
	}

	assert.ErrorIs(t, move("2099-03-16", "09:00"), domain.ErrSlotTaken)
	assert.ErrorIs(t, move("2099-03-16", "16:00"), domain.ErrDailyCapacity)
	require.NoError(t, move("2099-03-15", "17:00"), "moving within its own day")

	stored, err := f.bookings.FindByID(ctx, moving.ID)
	require.NoError(t, err)
	assert.Equal(t, "2099-03-15", stored.Date)
	assert.Equal(t, "17:00", stored.Time)
	assert.True(t, stored.IsRescheduled)
}

func TestTransfer_ConcurrentPurchaseWritesOneLedgerEntry(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	car := f.dealerCar(t)

	buyers := []string{newUserID(), newUserID()}
	errs := runConcurrently(len(buyers), func(i int) error {
		buyer := domain.Party{ID: buyers[i], Type: domain.OwnerUser, Email: buyers[i] + "@example.com"}
		_, _, err := f.cars.Transfer(ctx, car.ID, func(c *domain.Car) (*domain.Transaction, error) {
			return c.Purchase(buyer, f.now)
		})
		return err
	})

	require.Equal(t, 1, countNil(errs))
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrNotForSale)
		}
	}

	history, err := f.ledger.ListByCar(ctx, car.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	stored, err := f.cars.FindByID(ctx, car.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CarSold, stored.Status)
	assert.Equal(t, history[0].Buyer.ID, stored.CurrentOwnerID)
	assert.False(t, stored.AvailableForTestDrive)
	assert.True(t, history[0].Price.Equal(car.Price))
}

func TestTransfer_RejectedTransferLeavesNoTrace(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	car := f.dealerCar(t)

	stranger := domain.Party{ID: newUserID(), Type: domain.OwnerUser, Email: "x@example.com"}
	dealer := domain.Party{ID: car.CurrentOwnerID, Type: domain.OwnerDealer, Email: car.CurrentOwnerEmail}
	_, _, err := f.cars.Transfer(ctx, car.ID, func(c *domain.Car) (*domain.Transaction, error) {
		return c.SellToDealer(stranger, dealer, f.now)
	})
	require.ErrorIs(t, err, domain.ErrNotOwner)

	history, err := f.ledger.ListByCar(ctx, car.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	stored, err := f.cars.FindByID(ctx, car.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CarForSale, stored.Status)
}

func TestLedger_IsAppendOnly(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	car := f.dealerCar(t)

	buyer := domain.Party{ID: newUserID(), Type: domain.OwnerUser, Email: "buyer@example.com"}
	_, _, err := f.cars.Transfer(ctx, car.ID, func(c *domain.Car) (*domain.Transaction, error) {
		return c.Purchase(buyer, f.now)
	})
	require.NoError(t, err)

	_, err = f.pool.Exec(ctx, `UPDATE car_transactions SET price = 0 WHERE car_id = $1`, car.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	_, err = f.pool.Exec(ctx, `DELETE FROM car_transactions WHERE car_id = $1`, car.ID)
	require.Error(t, err)

	history, err := f.ledger.ListByCar(ctx, car.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Price.Equal(car.Price))
}

func TestClaimReminder_AtMostOnce(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()
	car := f.dealerCar(t)

	b := f.newBooking(t, car, newUserID(), "2099-03-17", "10:00")
	require.NoError(t, f.reserve(ctx, b))

	claimed, err := f.bookings.ClaimReminder(ctx, b.ID, domain.Reminder24h, f.now)
	require.NoError(t, err)
	assert.False(t, claimed, "pending bookings get no reminders")

	_, err = f.bookings.Mutate(ctx, b.ID, func(b *domain.Booking) error { return b.Confirm(f.now) })
	require.NoError(t, err)

	results := runConcurrently(4, func(int) error {
		ok, err := f.bookings.ClaimReminder(ctx, b.ID, domain.Reminder24h, f.now)
		if err != nil {
			return err
		}
		if !ok {
			return errNotClaimed
		}
		return nil
	})
	assert.Equal(t, 1, countNil(results))

	claimed, err = f.bookings.ClaimReminder(ctx, b.ID, domain.Reminder24h, f.now)
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = f.bookings.ClaimReminder(ctx, b.ID, domain.Reminder12h, f.now)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = f.bookings.ClaimReminder(ctx, b.ID, domain.Reminder12h, f.now)
	require.NoError(t, err)
	assert.False(t, claimed)
}

var errNotClaimed = errors.New("reminder already claimed")
