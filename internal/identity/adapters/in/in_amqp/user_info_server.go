package in_amqp

import (
	"context"
	"encoding/json"
	"errors"

	"carmarket/internal/identity/application/ports/in"
	"carmarket/internal/identity/domain"
	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/mq"
)

type userInfoRequest struct {
	Email string `json:"email"`
}

// UserInfoServer отвечает на RPC user_info
type UserInfoServer struct {
	lookup in.LookupUserUseCase
	log    *logger.Logger
}

// NewUserInfoServer создает обработчик user_info
func NewUserInfoServer(lookup in.LookupUserUseCase, log *logger.Logger) *UserInfoServer {
	return &UserInfoServer{lookup: lookup, log: log}
}

// Handle декодирует запрос и переводит доменные ошибки в коды RPC
func (s *UserInfoServer) Handle(ctx context.Context, body []byte) (any, error) {
	var req userInfoRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Email == "" {
		s.log.Warn(logger.Entry{
			Action:  "user_info_bad_request",
			Message: "email is required",
		})
		return nil, &mq.RPCError{Code: mq.RPCBadRequest, Message: "email is required"}
	}

	info, err := s.lookup.Execute(ctx, in.EmailInput{Email: req.Email})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, &mq.RPCError{Code: mq.RPCNotFound, Message: "User Not Found"}
		}
		// ServeRPC залогирует и ответит internal
		return nil, err
	}
	return info, nil
}

// Start подписывается на очередь user_info; не блокирует
func (s *UserInfoServer) Start(ctx context.Context, conn *mq.RabbitMQ) error {
	return mq.ServeRPC(ctx, conn, mq.QueueUserInfo, s.Handle, s.log)
}
