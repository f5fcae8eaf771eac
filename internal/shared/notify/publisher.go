package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/mq"
)

// Publisher кладет уведомления в очередь notify.email
type Publisher struct {
	mq  *mq.RabbitMQ
	log *logger.Logger
}

// NewPublisher создает publisher уведомлений
func NewPublisher(conn *mq.RabbitMQ, log *logger.Logger) *Publisher {
	return &Publisher{mq: conn, log: log}
}

// Send публикует сообщение; неизвестный тип отбрасывается до публикации
func (p *Publisher) Send(ctx context.Context, msg Message) error {
	if _, ok := templates[msg.Kind]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, msg.Kind)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := p.mq.Publish(ctx, mq.ExchangeNotifications, mq.RoutingNotifyEmail, payload); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	p.log.Debug(logger.Entry{
		Action:     "notification_published",
		Message:    string(msg.Kind),
		Additional: map[string]any{"to": msg.To},
	})
	return nil
}
