package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"carmarket/internal/identity/application/ports/in"
	"carmarket/internal/identity/application/ports/out"
	"carmarket/internal/identity/domain"
	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
)

// Lockout — правила блокировки после неудачных входов
type Lockout struct {
	MaxAttempts   int
	BlockDuration time.Duration
}

// LoginService реализует LoginUseCase
type LoginService struct {
	users    out.UserRepository
	tokens   out.TokenIssuer
	otp      otpIssuer
	notifier out.Notifier
	lockout  Lockout
	now      clock
	log      *logger.Logger
}

// NewLoginService создает сервис входа
func NewLoginService(
	users out.UserRepository,
	otpStore out.OTPStore,
	tokens out.TokenIssuer,
	notifier out.Notifier,
	lockout Lockout,
	otpTTL time.Duration,
	log *logger.Logger,
) *LoginService {
	return &LoginService{
		users:    users,
		tokens:   tokens,
		otp:      otpIssuer{store: otpStore, notifier: notifier, ttl: otpTTL, log: log},
		notifier: notifier,
		lockout:  lockout,
		now:      systemClock,
		log:      log,
	}
}

// Execute проверяет пароль, ведет счетчик попыток и выдает токен с OTP
func (s *LoginService) Execute(ctx context.Context, input in.LoginInput) (*in.LoginOutput, error) {
	now := s.now()

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if until, blocked := user.BlockedUntil(s.lockout.BlockDuration); blocked {
		if now.Before(until) {
			s.log.Warn(logger.Entry{
				Action:     "login_rejected_blocked",
				Message:    "login attempt on blocked account",
				Additional: map[string]any{"user_id": user.ID, "unblock_after": until},
			})
			return nil, domain.ErrAccountBlocked
		}
		if err := s.users.ResetLogin(ctx, user.ID, domain.StatusActive, now); err != nil {
			return nil, fmt.Errorf("unblock user: %w", err)
		}
		s.log.Info(logger.Entry{
			Action:     "user_unblocked",
			Message:    "block expired at login",
			Additional: map[string]any{"user_id": user.ID},
		})
	}

	if !passwordMatches(user.PasswordHash, input.Password) {
		return nil, s.recordFailure(ctx, user, now)
	}

	if err := s.users.ResetLogin(ctx, user.ID, domain.StatusVerifying, now); err != nil {
		return nil, fmt.Errorf("reset login attempts: %w", err)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	if err := s.otp.issue(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info(logger.Entry{
		Action:     "user_logged_in",
		Message:    "password accepted, otp sent",
		Additional: map[string]any{"user_id": user.ID},
	})

	return &in.LoginOutput{
		Message: "Login successful, OTP sent to your email",
		Role:    user.Role,
		Status:  domain.StatusVerifying,
		Token:   token,
	}, nil
}

func (s *LoginService) recordFailure(ctx context.Context, user *domain.User, now time.Time) error {
	res, err := s.users.RecordFailedLogin(ctx, user.ID, s.lockout.MaxAttempts, now)
	if err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}

	s.log.Warn(logger.Entry{
		Action:     "login_failed",
		Message:    "wrong password",
		Additional: map[string]any{"user_id": user.ID, "attempts": res.Attempts},
	})

	if !res.Blocked {
		return domain.ErrInvalidCredentials
	}

	if res.JustBlocked {
		s.log.Warn(logger.Entry{
			Action:     "user_blocked",
			Message:    "too many failed login attempts",
			Additional: map[string]any{"user_id": user.ID},
		})
		sendBestEffort(ctx, s.notifier, s.log, notify.Message{
			To:   user.Email,
			Kind: notify.KindAccountBlocked,
			Fields: map[string]string{
				"name":          user.DisplayName(),
				"attempts":      strconv.Itoa(res.Attempts),
				"unblock_after": now.Add(s.lockout.BlockDuration).Format(time.RFC1123),
			},
		}, user.ID)
	}
	return domain.ErrAccountBlocked
}
