package usecase

import (
	"context"
	"errors"
	"fmt"

	"carmarket/internal/identity/application/ports/in"
	"carmarket/internal/identity/application/ports/out"
	"carmarket/internal/identity/domain"
	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/notify"
)

// passwordWriter проверяет и сохраняет новый пароль
type passwordWriter struct {
	users    out.UserRepository
	notifier out.Notifier
	now      clock
	log      *logger.Logger
}

func (w passwordWriter) check(user *domain.User, newPassword string) error {
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}
	if passwordMatches(user.PasswordHash, newPassword) {
		return domain.ErrSamePassword
	}
	return nil
}

func (w passwordWriter) save(ctx context.Context, user *domain.User, newPassword string) error {
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := w.users.UpdatePassword(ctx, user.ID, hash, w.now()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	w.log.Info(logger.Entry{
		Action:     "password_changed",
		Message:    "password updated",
		Additional: map[string]any{"user_id": user.ID},
	})
	sendBestEffort(ctx, w.notifier, w.log, notify.Message{
		To:     user.Email,
		Kind:   notify.KindPasswordChanged,
		Fields: map[string]string{"name": user.DisplayName()},
	}, user.ID)
	return nil
}

// ResetPasswordService реализует ResetPasswordUseCase
type ResetPasswordService struct {
	passwordWriter
	store out.OTPStore
}

// NewResetPasswordService создает сервис сброса пароля по OTP
func NewResetPasswordService(users out.UserRepository, store out.OTPStore, notifier out.Notifier, log *logger.Logger) *ResetPasswordService {
	return &ResetPasswordService{
		passwordWriter: passwordWriter{users: users, notifier: notifier, now: systemClock, log: log},
		store:          store,
	}
}

// Execute меняет пароль; код гасится только после проверки нового пароля
func (s *ResetPasswordService) Execute(ctx context.Context, input in.ResetPasswordInput) (*in.StatusOutput, error) {
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := s.check(user, input.NewPassword); err != nil {
		return nil, err
	}

	ok, err := s.store.Consume(ctx, user.Email, input.OTP)
	if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidOTP
	}

	if err := s.save(ctx, user, input.NewPassword); err != nil {
		return nil, err
	}
	return &in.StatusOutput{Message: "Password reset successfully"}, nil
}

// ChangePasswordService реализует ChangePasswordUseCase
type ChangePasswordService struct {
	passwordWriter
}

// NewChangePasswordService создает сервис смены пароля
func NewChangePasswordService(users out.UserRepository, notifier out.Notifier, log *logger.Logger) *ChangePasswordService {
	return &ChangePasswordService{
		passwordWriter: passwordWriter{users: users, notifier: notifier, now: systemClock, log: log},
	}
}

// Execute проверяет старый пароль и сохраняет новый
func (s *ChangePasswordService) Execute(ctx context.Context, input in.ChangePasswordInput) (*in.StatusOutput, error) {
	user, err := s.users.FindByID(ctx, input.Principal.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !passwordMatches(user.PasswordHash, input.OldPassword) {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.check(user, input.NewPassword); err != nil {
		return nil, err
	}
	if err := s.save(ctx, user, input.NewPassword); err != nil {
		return nil, err
	}
	return &in.StatusOutput{Message: "Password changed successfully"}, nil
}
