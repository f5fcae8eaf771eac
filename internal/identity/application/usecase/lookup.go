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

// LookupUserService реализует LookupUserUseCase для RPC user_info
type LookupUserService struct {
	users out.UserRepository
	log   *logger.Logger
}

// NewLookupUserService создает сервис поиска пользователя по email
func NewLookupUserService(users out.UserRepository, log *logger.Logger) *LookupUserService {
	return &LookupUserService{users: users, log: log}
}

func (s *LookupUserService) Execute(ctx context.Context, input in.EmailInput) (*in.UserInfo, error) {
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &in.UserInfo{UserID: user.ID, Email: user.Email}, nil
}
