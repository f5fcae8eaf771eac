package in

import (
	"context"
	"time"

	"carmarket/internal/identity/domain"
	"carmarket/internal/shared/auth"
)

// RegisterInput — данные регистрации
type RegisterInput struct {
	domain.Registration
	Password string
}

// RegisterOutput — ответ на регистрацию
type RegisterOutput struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

type RegisterUseCase interface {
	Execute(ctx context.Context, input RegisterInput) (*RegisterOutput, error)
}

// LoginInput — вход по email и паролю
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput — первый фактор пройден, OTP отправлен
type LoginOutput struct {
	Message string        `json:"message"`
	Role    auth.Role     `json:"role"`
	Status  domain.Status `json:"status"`
	Token   string        `json:"token"`
}

type LoginUseCase interface {
	Execute(ctx context.Context, input LoginInput) (*LoginOutput, error)
}

// VerifyOTPInput — второй фактор
type VerifyOTPInput struct {
	Email string
	OTP   string
}

// EmailInput — операции, которым нужен только email
type EmailInput struct {
	Email string
}

// StatusOutput — сообщение и текущий статус
type StatusOutput struct {
	Message string        `json:"message"`
	Status  domain.Status `json:"status,omitempty"`
}

type VerifyOTPUseCase interface {
	Execute(ctx context.Context, input VerifyOTPInput) (*StatusOutput, error)
}

type ResendOTPUseCase interface {
	Execute(ctx context.Context, input EmailInput) (*StatusOutput, error)
}

type ForgotPasswordUseCase interface {
	Execute(ctx context.Context, input EmailInput) (*StatusOutput, error)
}

// ResetPasswordInput — сброс пароля по OTP
type ResetPasswordInput struct {
	Email       string
	OTP         string
	NewPassword string
}

type ResetPasswordUseCase interface {
	Execute(ctx context.Context, input ResetPasswordInput) (*StatusOutput, error)
}

// ChangePasswordInput — смена пароля вошедшим пользователем
type ChangePasswordInput struct {
	Principal   auth.Principal
	OldPassword string
	NewPassword string
}

type ChangePasswordUseCase interface {
	Execute(ctx context.Context, input ChangePasswordInput) (*StatusOutput, error)
}

// UpdateProfileInput — изменение собственного профиля
type UpdateProfileInput struct {
	Principal auth.Principal
	Patch     domain.ProfilePatch
}

type UpdateProfileOutput struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

type UpdateProfileUseCase interface {
	Execute(ctx context.Context, input UpdateProfileInput) (*UpdateProfileOutput, error)
}

// UserInfo — ответ user_info
type UserInfo struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type LookupUserUseCase interface {
	Execute(ctx context.Context, input EmailInput) (*UserInfo, error)
}

// SweepOutput — итог одного прохода фоновой задачи
type SweepOutput struct {
	Processed int64         `json:"processed"`
	Took      time.Duration `json:"took"`
}
