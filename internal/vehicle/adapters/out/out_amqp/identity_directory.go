package out_amqp

import (
	"context"
	"errors"
	"fmt"

	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/mq"
	"carmarket/internal/vehicle/application/ports/out"
	"carmarket/internal/vehicle/domain"
)

// caller — часть mq.RPCClient, нужная каталогу
type caller interface {
	Call(ctx context.Context, exchange, routingKey string, req, resp any) error
}

type userInfoRequest struct {
	Email string `json:"email"`
}

// IdentityDirectory ищет пользователя в identity сервисе через RPC user_info
type IdentityDirectory struct {
	rpc caller
	log *logger.Logger
}

// NewIdentityDirectory создает каталог поверх RPC клиента
func NewIdentityDirectory(rpc caller, log *logger.Logger) *IdentityDirectory {
	return &IdentityDirectory{rpc: rpc, log: log}
}

// LookupByEmail: not_found превращается в domain.ErrUserNotFound, остальное — ошибка транспорта
func (d *IdentityDirectory) LookupByEmail(ctx context.Context, email string) (*out.Identity, error) {
	var resp out.Identity
	err := d.rpc.Call(ctx, mq.ExchangeIdentityRPC, mq.RoutingUserInfo, userInfoRequest{Email: email}, &resp)
	if err != nil {
		var rpcErr *mq.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == mq.RPCNotFound {
			return nil, domain.ErrUserNotFound
		}
		d.log.Error(logger.Entry{
			Action:  "user_info_rpc_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return nil, fmt.Errorf("user_info rpc: %w", err)
	}
	if resp.UserID == "" {
		return nil, domain.ErrUserNotFound
	}
	if resp.Email == "" {
		resp.Email = email
	}
	return &resp, nil
}
