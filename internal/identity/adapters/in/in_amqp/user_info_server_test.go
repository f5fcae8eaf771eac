package in_amqp

import (
	"context"
	"errors"
	"testing"

	"carmarket/internal/identity/application/ports/in"
	"carmarket/internal/identity/domain"
	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/mq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupFunc func(ctx context.Context, input in.EmailInput) (*in.UserInfo, error)

func (f lookupFunc) Execute(ctx context.Context, input in.EmailInput) (*in.UserInfo, error) {
	return f(ctx, input)
}

func TestUserInfoHandle(t *testing.T) {
	lookup := lookupFunc(func(_ context.Context, input in.EmailInput) (*in.UserInfo, error) {
		switch input.Email {
		case "asha@example.com":
			return &in.UserInfo{UserID: "u-1", Email: input.Email}, nil
		case "broken@example.com":
			return nil, errors.New("connection reset")
		}
		return nil, domain.ErrUserNotFound
	})
	s := NewUserInfoServer(lookup, logger.NewNop())
	ctx := context.Background()

	res, err := s.Handle(ctx, []byte(`{"email":"asha@example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, &in.UserInfo{UserID: "u-1", Email: "asha@example.com"}, res)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"unknown user", `{"email":"ghost@example.com"}`, mq.RPCNotFound},
		{"missing email", `{}`, mq.RPCBadRequest},
		{"malformed body", `not json`, mq.RPCBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Handle(ctx, []byte(tt.body))
			var rpcErr *mq.RPCError
			require.ErrorAs(t, err, &rpcErr)
			assert.Equal(t, tt.code, rpcErr.Code)
		})
	}

	_, err = s.Handle(ctx, []byte(`{"email":"broken@example.com"}`))
	require.Error(t, err)
	var rpcErr *mq.RPCError
	assert.False(t, errors.As(err, &rpcErr))
}
