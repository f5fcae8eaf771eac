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

// RegisterService реализует RegisterUseCase
type RegisterService struct {
	users out.UserRepository
	now   clock
	log   *logger.Logger
}

// NewRegisterService создает сервис регистрации
func NewRegisterService(users out.UserRepository, log *logger.Logger) *RegisterService {
	return &RegisterService{users: users, now: systemClock, log: log}
}

// Execute создает аккаунт с ролью user
func (s *RegisterService) Execute(ctx context.Context, input in.RegisterInput) (*in.RegisterOutput, error) {
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		s.log.Error(logger.Entry{
			Action:  "password_hash_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, err
	}

	user := domain.NewUser(input.Registration, hash, s.now())
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info(logger.Entry{
		Action:     "user_registered",
		Message:    "user registered",
		Additional: map[string]any{"user_id": user.ID},
	})

	return &in.RegisterOutput{Message: "User registered successfully", User: user}, nil
}
