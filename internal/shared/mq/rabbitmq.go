package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"carmarket/internal/shared/config"
	"carmarket/internal/shared/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ представляет подключение к RabbitMQ
type RabbitMQ struct {
	url    string
	conn   *amqp.Connection
	ch     *amqp.Channel
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// NewRabbitMQ создает подключение к RabbitMQ с retry
func NewRabbitMQ(ctx context.Context, cfg config.MQConfig, log *logger.Logger) (*RabbitMQ, error) {
	mq := &RabbitMQ{
		url: cfg.AMQPURL(),
		log: log,
	}

	maxRetries := 10
	retryDelay := 1 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := mq.connect()
		if err == nil {
			log.Info(logger.Entry{
				Action:     "rabbitmq_connected",
				Message:    fmt.Sprintf("connected to %s:%d", cfg.Host, cfg.Port),
				Additional: map[string]any{"attempt": attempt},
			})
			return mq, nil
		}

		log.Warn(logger.Entry{
			Action:  "rabbitmq_connection_attempt_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"attempt":      attempt,
				"max_retries":  maxRetries,
				"retry_in_sec": retryDelay.Seconds(),
			},
		})

		if attempt == maxRetries {
			return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
			retryDelay = time.Duration(float64(retryDelay) * 1.5)
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}
		}
	}

	return nil, fmt.Errorf("unexpected error: retry loop completed without success")
}

func (mq *RabbitMQ) connect() error {
	conn, err := amqp.Dial(mq.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("set qos: %w", err)
	}

	mq.mu.Lock()
	mq.conn = conn
	mq.ch = ch
	mq.mu.Unlock()

	return nil
}

// Channel возвращает общий канал публикации
func (mq *RabbitMQ) Channel() *amqp.Channel {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return mq.ch
}

// OpenChannel открывает отдельный канал (RPC клиент и consumers держат свой)
func (mq *RabbitMQ) OpenChannel() (*amqp.Channel, error) {
	mq.mu.RLock()
	conn := mq.conn
	mq.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, fmt.Errorf("rabbitmq connection not available")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, nil
}

// Publish публикует persistent JSON сообщение в exchange
func (mq *RabbitMQ) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	return mq.PublishMessage(ctx, exchange, routingKey, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
}

// PublishMessage публикует произвольное сообщение (reply-to, correlation id и т.п.)
func (mq *RabbitMQ) PublishMessage(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	mq.mu.RLock()
	ch := mq.ch
	mq.mu.RUnlock()

	if ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	return ch.PublishWithContext(publishCtx, exchange, routingKey, false, false, msg)
}

// Consume начинает чтение сообщений из очереди на отдельном канале.
// Handler сам решает ack/nack.
func (mq *RabbitMQ) Consume(ctx context.Context, queue, consumer string, handler func(amqp.Delivery)) error {
	ch, err := mq.OpenChannel()
	if err != nil {
		return err
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(queue, consumer, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("start consuming: %w", err)
	}

	mq.log.Info(logger.Entry{
		Action:  "consumer_started",
		Message: fmt.Sprintf("consuming from queue: %s", queue),
	})

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					mq.log.Info(logger.Entry{Action: "consumer_stopped", Message: queue})
					return
				}
				handler(msg)
			}
		}
	}()

	return nil
}

// Close закрывает подключение к RabbitMQ
func (mq *RabbitMQ) Close() {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.closed {
		return
	}
	mq.closed = true

	if mq.ch != nil {
		_ = mq.ch.Close()
	}
	if mq.conn != nil {
		_ = mq.conn.Close()
	}

	mq.log.Info(logger.Entry{Action: "rabbitmq_closed", Message: "connection closed"})
}
