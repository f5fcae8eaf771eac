package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"
)

// CreateBookingService реализует CreateBookingUseCase
type CreateBookingService struct {
	cars      out.CarRepository
	bookings  out.BookingRepository
	directory out.IdentityDirectory
	notifier  out.Notifier
	feed      out.BookingFeed
	policy    domain.AdmissionPolicy
	dealer    domain.Dealer
	loc       *time.Location
	now       clock
	log       *logger.Logger
}

// NewCreateBookingService создает сервис записи на тест-драйв
func NewCreateBookingService(
	cars out.CarRepository,
	bookings out.BookingRepository,
	directory out.IdentityDirectory,
	notifier out.Notifier,
	feed out.BookingFeed,
	dealer domain.Dealer,
	loc *time.Location,
	log *logger.Logger,
) *CreateBookingService {
	return &CreateBookingService{
		cars:      cars,
		bookings:  bookings,
		directory: directory,
		notifier:  notifier,
		feed:      feed,
		policy:    domain.DefaultAdmissionPolicy(),
		dealer:    dealer,
		loc:       loc,
		now:       systemClock,
		log:       log,
	}
}

// Execute проверяет слот и лимиты и сохраняет запись в статусе Pending
func (s *CreateBookingService) Execute(ctx context.Context, input in.CreateBookingInput) (*in.BookingAck, error) {
	now := s.now()
	slot, err := domain.ParseSlot(input.Date, input.Time, s.loc, now)
	if err != nil {
		return nil, err
	}

	car, err := s.findCar(ctx, input)
	if err != nil {
		return nil, err
	}
	if !car.OpenForTestDrive() {
		return nil, domain.ErrNotOpenForTestDrive
	}

	user, err := resolveUser(ctx, s.directory, input.Principal)
	if err != nil {
		return nil, err
	}

	booking := domain.NewBooking(car, slot, user.UserID, user.Email, s.dealer, now)
	if err := s.bookings.Reserve(ctx, booking, s.policy, s.policy.QuotaSince(now)); err != nil {
		s.log.Warn(logger.Entry{
			Action:  "booking_rejected",
			Message: err.Error(),
			CarID:   car.ID,
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"user_id": user.UserID,
				"date":    slot.Date,
				"time":    slot.Time,
			},
		})
		return nil, fmt.Errorf("reserve test drive: %w", err)
	}

	s.log.Info(logger.Entry{
		Action:    "booking_created",
		Message:   "test drive booked",
		CarID:     car.ID,
		BookingID: booking.ID,
		Additional: map[string]any{
			"user_id": user.UserID,
			"date":    slot.Date,
			"time":    slot.Time,
		},
	})

	sendBestEffort(ctx, s.notifier, s.log, bookingMessage(booking, notify.KindBookingReceived), booking.ID)
	publishEvent(ctx, s.feed, EventBookingCreated, booking)

	return &in.BookingAck{
		Message:   "Test drive booked successfully",
		BookingID: booking.ID,
		Status:    booking.Status,
	}, nil
}

func (s *CreateBookingService) findCar(ctx context.Context, input in.CreateBookingInput) (*domain.Car, error) {
	if id := strings.TrimSpace(input.CarID); id != "" {
		return s.cars.FindByID(ctx, id)
	}
	brand := strings.TrimSpace(input.CarBrand)
	if brand == "" {
		return nil, fmt.Errorf("%w: carId or carBrand is required", domain.ErrValidation)
	}
	return s.cars.FindByBrand(ctx, brand)
}
