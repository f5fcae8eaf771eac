package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carmarket/internal/identity/application/ports/in"
	"carmarket/internal/identity/application/ports/out"
	"carmarket/internal/identity/domain"
	"carmarket/internal/shared/logger"
)

// VerifyOTPService реализует VerifyOTPUseCase
type VerifyOTPService struct {
	users out.UserRepository
	store out.OTPStore
	now   clock
	log   *logger.Logger
}

// NewVerifyOTPService создает сервис проверки OTP
func NewVerifyOTPService(users out.UserRepository, store out.OTPStore, log *logger.Logger) *VerifyOTPService {
	return &VerifyOTPService{users: users, store: store, now: systemClock, log: log}
}

// Execute погашает код и переводит аккаунт в VERIFIED
func (s *VerifyOTPService) Execute(ctx context.Context, input in.VerifyOTPInput) (*in.StatusOutput, error) {
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidOTP
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := s.store.Consume(ctx, user.Email, input.OTP)
	if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	if !ok {
		s.log.Warn(logger.Entry{
			Action:     "otp_rejected",
			Message:    "invalid or expired otp",
			Additional: map[string]any{"user_id": user.ID},
		})
		return nil, domain.ErrInvalidOTP
	}

	if err := s.users.UpdateStatus(ctx, user.ID, domain.StatusVerified, s.now()); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.log.Info(logger.Entry{
		Action:     "otp_verified",
		Message:    "user verified",
		Additional: map[string]any{"user_id": user.ID},
	})

	return &in.StatusOutput{Message: "OTP verified successfully", Status: domain.StatusVerified}, nil
}

// ResendOTPService реализует ResendOTPUseCase и ForgotPasswordUseCase:
// обе операции выдают новый код на email пользователя
type ResendOTPService struct {
	users   out.UserRepository
	otp     otpIssuer
	message string
	log     *logger.Logger
}

// NewResendOTPService создает сервис повторной отправки OTP
func NewResendOTPService(users out.UserRepository, store out.OTPStore, notifier out.Notifier, ttl time.Duration, log *logger.Logger) *ResendOTPService {
	return &ResendOTPService{
		users:   users,
		otp:     otpIssuer{store: store, notifier: notifier, ttl: ttl, log: log},
		message: "OTP resent to your email",
		log:     log,
	}
}

// NewForgotPasswordService создает сервис выдачи OTP для сброса пароля
func NewForgotPasswordService(users out.UserRepository, store out.OTPStore, notifier out.Notifier, ttl time.Duration, log *logger.Logger) *ResendOTPService {
	s := NewResendOTPService(users, store, notifier, ttl, log)
	s.message = "OTP sent to your email to reset the password"
	return s
}

// Execute выдает новый код; прежний код перезаписывается
func (s *ResendOTPService) Execute(ctx context.Context, input in.EmailInput) (*in.StatusOutput, error) {
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := s.otp.issue(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info(logger.Entry{
		Action:     "otp_issued",
		Message:    s.message,
		Additional: map[string]any{"user_id": user.ID},
	})

	return &in.StatusOutput{Message: s.message}, nil
}
