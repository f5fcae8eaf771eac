package usecase

import (
	"context"
	"fmt"
	"time"

	"carmarket/internal/shared/logger"
	"carmarket/internal/vehicle/application/ports/in"
	"carmarket/internal/vehicle/application/ports/out"
)

// CompletionSweepService завершает подтвержденные тест-драйвы после их времени
type CompletionSweepService struct {
	bookings out.BookingRepository
	grace    time.Duration
	now      clock
	log      *logger.Logger
}

// NewCompletionSweepService создает задачу завершения; grace — запас после начала тест-драйва
func NewCompletionSweepService(bookings out.BookingRepository, grace time.Duration, log *logger.Logger) *CompletionSweepService {
	return &CompletionSweepService{bookings: bookings, grace: grace, now: systemClock, log: log}
}

// Execute выполняет один проход одним условным UPDATE
func (s *CompletionSweepService) Execute(ctx context.Context) (*in.SweepOutput, error) {
	now := s.now()
	n, err := s.bookings.CompleteElapsed(ctx, now.Add(-s.grace), now)
	if err != nil {
		return nil, fmt.Errorf("complete elapsed bookings: %w", err)
	}
	if n > 0 {
		s.log.Info(logger.Entry{
			Action:     "bookings_completed",
			Message:    "elapsed test drives completed",
			Additional: map[string]any{"count": n},
		})
	}
	return &in.SweepOutput{Processed: int(n)}, nil
}
