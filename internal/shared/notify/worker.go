package notify

import (
	"context"
	"encoding/json"
	"errors"

	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/mq"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Sink доставляет отрендеренное письмо
type Sink interface {
	Deliver(ctx context.Context, email Email) error
}

// LogSink "доставляет" письма в лог; интеграция с почтовым провайдером не требуется
type LogSink struct {
	log *logger.Logger
}

// NewLogSink создает sink, пишущий письма в лог
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Deliver(_ context.Context, email Email) error {
	s.log.Info(logger.Entry{
		Action:  "email_sent",
		Message: email.Subject,
		Additional: map[string]any{
			"to":   email.To,
			"body": email.Body,
		},
	})
	return nil
}

// Worker читает notify.email, рендерит и передает в Sink
type Worker struct {
	mq   *mq.RabbitMQ
	sink Sink
	log  *logger.Logger
}

// NewWorker создает воркер доставки уведомлений
func NewWorker(conn *mq.RabbitMQ, sink Sink, log *logger.Logger) *Worker {
	return &Worker{mq: conn, sink: sink, log: log}
}

// Start подписывается на очередь; обработка идет в фоне до отмены ctx
func (w *Worker) Start(ctx context.Context) error {
	return w.mq.Consume(ctx, mq.QueueNotifyEmail, "notify-worker", func(d amqp.Delivery) {
		err := w.Handle(ctx, d.Body)
		switch {
		case err == nil:
			_ = d.Ack(false)
		case errors.Is(err, errPoison):
			// битое сообщение не переигрываем
			_ = d.Nack(false, false)
		default:
			_ = d.Nack(false, !d.Redelivered)
		}
	})
}

var errPoison = errors.New("poison notification")

// Handle обрабатывает одно сообщение из очереди
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		w.log.Error(logger.Entry{
			Action:  "notification_decode_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return errPoison
	}

	email, err := Render(msg)
	if err != nil {
		w.log.Error(logger.Entry{
			Action:     "notification_render_failed",
			Message:    err.Error(),
			Error:      &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{"kind": msg.Kind},
		})
		return errPoison
	}

	if err := w.sink.Deliver(ctx, email); err != nil {
		w.log.Error(logger.Entry{
			Action:     "notification_delivery_failed",
			Message:    err.Error(),
			Error:      &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{"kind": msg.Kind, "to": msg.To},
		})
		return err
	}
	return nil
}
