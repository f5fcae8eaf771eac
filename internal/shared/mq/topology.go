package mq

import (
	"context"
	"fmt"

	"carmarket/internal/shared/logger"
)

// Имена exchange, очередей и routing keys
const (
	ExchangeNotifications = "notifications"
	QueueNotifyEmail      = "notify.email"
	RoutingNotifyEmail    = "notify.email"

	ExchangeIdentityRPC = "identity_rpc"
	QueueUserInfo       = "identity.user_info"
	RoutingUserInfo     = "user_info"
)

// SetupTopology объявляет exchanges, очереди и bindings. Идемпотентно.
func SetupTopology(ctx context.Context, mq *RabbitMQ, log *logger.Logger) error {
	ch := mq.Channel()
	if ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}

	exchanges := []struct{ name, kind string }{
		{ExchangeNotifications, "direct"},
		{ExchangeIdentityRPC, "direct"},
	}
	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex.name, ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", ex.name, err)
		}
	}

	bindings := []struct{ queue, key, exchange string }{
		{QueueNotifyEmail, RoutingNotifyEmail, ExchangeNotifications},
		{QueueUserInfo, RoutingUserInfo, ExchangeIdentityRPC},
	}
	for _, b := range bindings {
		if _, err := ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.queue, err)
		}
		if err := ch.QueueBind(b.queue, b.key, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", b.queue, err)
		}
	}

	log.Info(logger.Entry{
		Action:  "topology_setup_complete",
		Message: "all exchanges and queues created",
	})

	return nil
}
