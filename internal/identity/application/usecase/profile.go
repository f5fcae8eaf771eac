package usecase

import (
	"context"
	"errors"
	"fmt"

	"carmarket/internal/identity/application/ports/in"
	"carmarket/internal/identity/application/ports/out"
	"carmarket/internal/identity/domain"
	"carmarket/internal/shared/logger"
)

// UpdateProfileService реализует UpdateProfileUseCase
type UpdateProfileService struct {
	users out.UserRepository
	now   clock
	log   *logger.Logger
}

// NewUpdateProfileService создает сервис изменения профиля
func NewUpdateProfileService(users out.UserRepository, log *logger.Logger) *UpdateProfileService {
	return &UpdateProfileService{users: users, now: systemClock, log: log}
}

// Execute меняет профиль вошедшего пользователя; уникальность email и username проверяет хранилище
func (s *UpdateProfileService) Execute(ctx context.Context, input in.UpdateProfileInput) (*in.UpdateProfileOutput, error) {
	user, err := s.users.FindByID(ctx, input.Principal.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	user.Apply(input.Patch, s.now())

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.log.Info(logger.Entry{
		Action:     "profile_updated",
		Message:    "user information updated",
		Additional: map[string]any{"user_id": user.ID},
	})

	return &in.UpdateProfileOutput{Message: "User information updated successfully", User: user}, nil
}
