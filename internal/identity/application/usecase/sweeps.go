package usecase

import (
	"context"
	"fmt"
	"time"

	"carmarket/internal/identity/application/ports/in"
	"carmarket/internal/identity/application/ports/out"
	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
)

// UnblockSweepService снимает истекшие блокировки
type UnblockSweepService struct {
	users    out.UserRepository
	duration time.Duration
	now      clock
	log      *logger.Logger
}

// NewUnblockSweepService создает фоновую задачу разблокировки
func NewUnblockSweepService(users out.UserRepository, duration time.Duration, log *logger.Logger) *UnblockSweepService {
	return &UnblockSweepService{users: users, duration: duration, now: systemClock, log: log}
}

func (s *UnblockSweepService) Execute(ctx context.Context) (*in.SweepOutput, error) {
	start := s.now()
	n, err := s.users.UnblockExpired(ctx, start.Add(-s.duration), start)
	if err != nil {
		return nil, fmt.Errorf("unblock expired: %w", err)
	}
	if n > 0 {
		s.log.Info(logger.Entry{
			Action:     "users_unblocked",
			Message:    "expired blocks cleared",
			Additional: map[string]any{"count": n},
		})
	}
	return &in.SweepOutput{Processed: n, Took: s.now().Sub(start)}, nil
}

// BirthdaySweepService поздравляет пользователей раз в год
type BirthdaySweepService struct {
	users    out.UserRepository
	notifier out.Notifier
	loc      *time.Location
	now      clock
	log      *logger.Logger
}

// NewBirthdaySweepService создает фоновую задачу поздравлений; дата берется в часовом поясе loc
func NewBirthdaySweepService(users out.UserRepository, notifier out.Notifier, loc *time.Location, log *logger.Logger) *BirthdaySweepService {
	if loc == nil {
		loc = time.UTC
	}
	return &BirthdaySweepService{users: users, notifier: notifier, loc: loc, now: systemClock, log: log}
}

// Execute сначала ставит маркер года, затем шлет письмо: повторный проход не дублирует поздравление
func (s *BirthdaySweepService) Execute(ctx context.Context) (*in.SweepOutput, error) {
	start := s.now()
	today := start.In(s.loc)

	users, err := s.users.ListBirthdays(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("list birthdays: %w", err)
	}

	var sent int64
	for _, u := range users {
		claimed, err := s.users.ClaimBirthday(ctx, u.ID, today.Year())
		if err != nil {
			s.log.Error(logger.Entry{
				Action:     "birthday_claim_failed",
				Message:    err.Error(),
				Error:      &logger.ErrObj{Msg: err.Error()},
				Additional: map[string]any{"user_id": u.ID},
			})
			continue
		}
		if !claimed {
			continue
		}
		sendBestEffort(ctx, s.notifier, s.log, notify.Message{
			To:     u.Email,
			Kind:   notify.KindBirthday,
			Fields: map[string]string{"name": u.DisplayName()},
		}, u.ID)
		sent++
	}

	if sent > 0 {
		s.log.Info(logger.Entry{
			Action:     "birthday_greetings_sent",
			Message:    "birthday greetings sent",
			Additional: map[string]any{"count": sent},
		})
	}
	return &in.SweepOutput{Processed: sent, Took: s.now().Sub(start)}, nil
}
