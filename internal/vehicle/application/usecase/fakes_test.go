package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"carmarket/internal/shared/auth"
	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memStore — потокобезопасная реализация репозиториев; один мьютекс играет роль блокировок строк
type memStore struct {
	mu       sync.Mutex
	cars     map[string]*domain.Car
	ledger   []*domain.Transaction
	bookings map[string]*domain.Booking

	failTransferInsert bool
}

func newMemStore() *memStore {
	return &memStore{
		cars:     map[string]*domain.Car{},
		bookings: map[string]*domain.Booking{},
	}
}

func cloneCar(c *domain.Car) *domain.Car {
	cp := *c
	cp.SpareParts = append([]string(nil), c.SpareParts...)
	return &cp
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	cp := *b
	return &cp
}

func (m *memStore) Create(_ context.Context, car *domain.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cars[car.ID] = cloneCar(car)
	return nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*domain.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cars[id]
	if !ok {
		return nil, domain.ErrCarNotFound
	}
	return cloneCar(c), nil
}

func (m *memStore) FindByBrand(_ context.Context, brand string) (*domain.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *domain.Car
	for _, c := range m.cars {
		if c.Brand != brand {
			continue
		}
		if best == nil ||
			(c.OpenForTestDrive() && !best.OpenForTestDrive()) ||
			(c.OpenForTestDrive() == best.OpenForTestDrive() && c.CreatedAt.Before(best.CreatedAt)) {
			best = c
		}
	}
	if best == nil {
		return nil, domain.ErrCarNotFound
	}
	return cloneCar(best), nil
}

func (m *memStore) FindPrimaryDealer(_ context.Context, dealerName string) (*domain.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cars {
		if c.CurrentOwnerType == domain.OwnerDealer && c.DealerName == dealerName {
			p := c.Owner()
			return &p, nil
		}
	}
	return nil, domain.ErrDealerNotFound
}

func (m *memStore) sortedCars(match func(*domain.Car) bool) []*domain.Car {
	res := []*domain.Car{}
	for _, c := range m.cars {
		if match(c) {
			res = append(res, cloneCar(c))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res
}

func (m *memStore) List(_ context.Context, limit, offset int) ([]*domain.Car, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sortedCars(func(*domain.Car) bool { return true })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memStore) ListAvailable(_ context.Context) ([]*domain.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedCars(func(c *domain.Car) bool { return c.OpenForTestDrive() }), nil
}

func (m *memStore) ListByOwner(_ context.Context, ownerID string) ([]*domain.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedCars(func(c *domain.Car) bool { return c.CurrentOwnerID == ownerID }), nil
}

func (m *memStore) Update(_ context.Context, car *domain.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cars[car.ID]; !ok {
		return domain.ErrCarNotFound
	}
	m.cars[car.ID] = cloneCar(car)
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cars[id]; !ok {
		return domain.ErrCarNotFound
	}
	delete(m.cars, id)
	return nil
}

func (m *memStore) Transfer(_ context.Context, carID string, fn out.TransferFunc) (*domain.Car, *domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.cars[carID]
	if !ok {
		return nil, nil, domain.ErrCarNotFound
	}
	car := cloneCar(stored)
	tx, err := fn(car)
	if err != nil {
		return nil, nil, err
	}
	if m.failTransferInsert {
		return nil, nil, errors.New("insert transaction: connection reset")
	}
	m.ledger = append(m.ledger, tx)
	m.cars[carID] = cloneCar(car)
	return car, tx, nil
}

func (m *memStore) ListByParty(_ context.Context, partyID string) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := []*domain.Transaction{}
	for _, tx := range m.ledger {
		if tx.Buyer.ID == partyID || tx.Seller.ID == partyID {
			res = append(res, tx)
		}
	}
	return res, nil
}

func (m *memStore) ListByCar(_ context.Context, carID string) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := []*domain.Transaction{}
	for _, tx := range m.ledger {
		if tx.CarID == carID {
			res = append(res, tx)
		}
	}
	return res, nil
}

func (m *memStore) slotTaken(carID string, slot domain.Slot, exceptID string) bool {
	for _, b := range m.bookings {
		if b.ID != exceptID && b.CarID == carID && b.Status.Active() && b.Date == slot.Date && b.Time == slot.Time {
			return true
		}
	}
	return false
}

func (m *memStore) Reserve(_ context.Context, nb *domain.Booking, policy domain.AdmissionPolicy, quotaSince time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	car, ok := m.cars[nb.CarID]
	if !ok {
		return domain.ErrCarNotFound
	}
	if !car.OpenForTestDrive() {
		return domain.ErrNotOpenForTestDrive
	}

	counts := domain.AdmissionCounts{SlotTaken: m.slotTaken(nb.CarID, nb.Slot, "")}
	for _, b := range m.bookings {
		if !b.Status.Active() {
			continue
		}
		if b.CarID == nb.CarID && b.Date == nb.Date {
			counts.ActiveOnDay++
		}
		if b.UserID == nb.UserID && !b.CreatedAt.Before(quotaSince) {
			counts.UserActiveRecent++
		}
	}
	if err := policy.Admit(counts); err != nil {
		return err
	}
	m.bookings[nb.ID] = cloneBooking(nb)
	return nil
}

// memBookings — представление memStore как BookingRepository (FindByID перекрыт)
type memBookings struct {
	*memStore
}

func (m memBookings) FindByID(_ context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (m *memStore) booking(id string) *domain.Booking {
	b, _ := memBookings{m}.FindByID(context.Background(), id)
	return b
}

func (m *memStore) Mutate(_ context.Context, id string, fn func(b *domain.Booking) error) (*domain.Booking, error) {
	return m.mutate(id, nil, fn)
}

func (m *memStore) Reschedule(_ context.Context, id string, policy domain.AdmissionPolicy, fn func(b *domain.Booking) error) (*domain.Booking, error) {
	return m.mutate(id, &policy, fn)
}

func (m *memStore) mutate(id string, policy *domain.AdmissionPolicy, fn func(b *domain.Booking) error) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	b := cloneBooking(stored)
	if err := fn(b); err != nil {
		return nil, err
	}
	if (b.Date != stored.Date || b.Time != stored.Time) && b.Status.Active() {
		counts := domain.AdmissionCounts{SlotTaken: m.slotTaken(b.CarID, b.Slot, b.ID)}
		for _, other := range m.bookings {
			if other.ID != b.ID && other.CarID == b.CarID && other.Status.Active() && other.Date == b.Date {
				counts.ActiveOnDay++
			}
		}
		if policy != nil {
			if err := policy.AdmitMove(counts); err != nil {
				return nil, err
			}
		} else if counts.SlotTaken {
			return nil, domain.ErrSlotTaken
		}
	}
	m.bookings[id] = cloneBooking(b)
	return b, nil
}

func (m *memStore) bookingsWhere(match func(*domain.Booking) bool) []*domain.Booking {
	res := []*domain.Booking{}
	for _, b := range m.bookings {
		if match(b) {
			res = append(res, cloneBooking(b))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].At.Before(res[j].At) })
	return res
}

func (m *memStore) ListActiveByCar(_ context.Context, carID string) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookingsWhere(func(b *domain.Booking) bool { return b.CarID == carID && b.Status.Active() }), nil
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookingsWhere(func(b *domain.Booking) bool { return b.UserID == userID }), nil
}

func (m *memStore) ListByStatus(_ context.Context, status domain.BookingStatus) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookingsWhere(func(b *domain.Booking) bool { return status == "" || b.Status == status }), nil
}

func (m *memStore) ListConfirmedBetween(_ context.Context, from, to time.Time) ([]*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookingsWhere(func(b *domain.Booking) bool {
		return b.Status == domain.BookingConfirmed && b.At.After(from) && !b.At.After(to)
	}), nil
}

func (m *memStore) ClaimReminder(_ context.Context, id string, r domain.Reminder, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != domain.BookingConfirmed {
		return false, nil
	}
	switch r {
	case domain.Reminder24h:
		if b.Reminder24hSentAt != nil {
			return false, nil
		}
	case domain.Reminder12h:
		if b.Reminder12hSentAt != nil {
			return false, nil
		}
	}
	b.MarkReminder(r, at)
	return true, nil
}

func (m *memStore) CompleteElapsed(_ context.Context, before, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.bookings {
		if b.Status == domain.BookingConfirmed && b.At.Before(before) {
			b.Status = domain.BookingCompleted
			b.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

// fakeDirectory — identity сервис в памяти
type fakeDirectory struct {
	users map[string]string // email -> id
	err   error
}

func (d *fakeDirectory) LookupByEmail(_ context.Context, email string) (*out.Identity, error) {
	if d.err != nil {
		return nil, d.err
	}
	id, ok := d.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &out.Identity{UserID: id, Email: email}, nil
}

// recordingNotifier запоминает отправленные сообщения
type recordingNotifier struct {
	mu      sync.Mutex
	sent    []notify.Message
	ctxErrs []error // ctx.Err() в момент отправки
	err     error
}

func (n *recordingNotifier) Send(ctx context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	return n.err
}

func (n *recordingNotifier) byKind(kind notify.Kind) []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var res []notify.Message
	for _, m := range n.sent {
		if m.Kind == kind {
			res = append(res, m)
		}
	}
	return res
}

type recordingFeed struct {
	mu     sync.Mutex
	events []out.BookingEvent
}

func (f *recordingFeed) Publish(_ context.Context, evt out.BookingEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
}

func (f *recordingFeed) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]string, 0, len(f.events))
	for _, e := range f.events {
		res = append(res, e.Type)
	}
	return res
}

var (
	testNow    = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	testDealer = domain.Dealer{Name: "KP Group", Address: "A-22(KP-Group), Mall Road, Near NCR, Delhi"}

	dealerPrincipal = auth.Principal{UserID: "dealer-1", Email: "sales@kpgroup.example", Role: auth.RoleAdmin}
)

func fixedClock() time.Time { return testNow }

func userPrincipal(id string) auth.Principal {
	return auth.Principal{UserID: id, Email: id + "@example.com", Role: auth.RoleUser}
}

// fixture — связанный набор фейков и сервисов
type fixture struct {
	store    *memStore
	bookings memBookings
	dir      *fakeDirectory
	notifier *recordingNotifier
	feed     *recordingFeed
}

func newFixture() *fixture {
	store := newMemStore()
	return &fixture{
		store:    store,
		bookings: memBookings{store},
		dir:      &fakeDirectory{users: map[string]string{dealerPrincipal.Email: dealerPrincipal.UserID}},
		notifier: &recordingNotifier{},
		feed:     &recordingFeed{},
	}
}

func (f *fixture) addUser(id string) auth.Principal {
	p := userPrincipal(id)
	f.dir.users[p.Email] = id
	return p
}

func (f *fixture) addDealerCar(brand string, createdAt time.Time) *domain.Car {
	car, err := domain.NewCar(domain.CarAttributes{
		Brand: brand,
		Model: "Model " + brand,
		Year:  2023,
		Color: "black",
		Price: decimal.RequireFromString("25000.00"),
	}, domain.Party{ID: dealerPrincipal.UserID, Type: domain.OwnerDealer, Email: dealerPrincipal.Email}, testDealer.Name, createdAt)
	if err != nil {
		panic(err)
	}
	_ = f.store.Create(context.Background(), car)
	return car
}

func (f *fixture) createService() *CreateBookingService {
	s := NewCreateBookingService(f.store, f.bookings, f.dir, f.notifier, f.feed, testDealer, time.UTC, logger.NewNop())
	s.now = fixedClock
	return s
}

func (f *fixture) confirmService() *ConfirmBookingService {
	s := NewConfirmBookingService(f.bookings, f.notifier, f.feed, logger.NewNop())
	s.now = fixedClock
	return s
}

func (f *fixture) rescheduleService() *RescheduleBookingService {
	s := NewRescheduleBookingService(f.bookings, f.notifier, f.feed, time.UTC, logger.NewNop())
	s.now = fixedClock
	return s
}

func (f *fixture) cancelService() *CancelBookingService {
	s := NewCancelBookingService(f.bookings, f.notifier, f.feed, logger.NewNop())
	s.now = fixedClock
	return s
}

func (f *fixture) cascadeService() *CascadeCancelService {
	s := NewCascadeCancelService(f.bookings, f.notifier, f.feed, logger.NewNop())
	s.now = fixedClock
	return s
}

func (f *fixture) buyService() *BuyCarService {
	s := NewBuyCarService(f.store, f.dir, f.cascadeService(), f.notifier, logger.NewNop())
	s.now = fixedClock
	return s
}

func (f *fixture) sellService() *SellCarService {
	s := NewSellCarService(f.store, f.dir, f.notifier, testDealer.Name, logger.NewNop())
	s.now = fixedClock
	return s
}

// book создает запись и падает при ошибке
func (f *fixture) book(t *testing.T, p auth.Principal, carID, date, clock string) string {
	t.Helper()
	ack, err := f.createService().Execute(context.Background(), in.CreateBookingInput{
		Principal: p,
		CarID:     carID,
		Date:      date,
		Time:      clock,
	})
	require.NoError(t, err)
	return ack.BookingID
}
