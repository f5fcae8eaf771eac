package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"carmarket/internal/shared/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const directReplyTo = "amq.rabbitmq.reply-to"

// Коды ошибок RPC
const (
	RPCNotFound   = "not_found"
	RPCBadRequest = "bad_request"
	RPCInternal   = "internal"
)

// ErrRPCTimeout — ответ не пришел за отведенное время
var ErrRPCTimeout = errors.New("rpc timeout")

// RPCError — ошибка, переданная сервером в ответе
type RPCError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s: %s", e.Code, e.Message)
}

// RPCResponse — конверт ответа
type RPCResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *RPCError       `json:"error,omitempty"`
}

// RPCClient вызывает удаленные процедуры через direct reply-to.
// Результаты живут только в рамках вызова.
type RPCClient struct {
	ch      *amqp.Channel
	log     *logger.Logger
	timeout time.Duration

	pubMu   sync.Mutex
	mu      sync.Mutex
	pending map[string]chan amqp.Delivery
}

// NewRPCClient открывает выделенный канал и подписывается на reply-to
func NewRPCClient(ctx context.Context, conn *RabbitMQ, timeout time.Duration, log *logger.Logger) (*RPCClient, error) {
	ch, err := conn.OpenChannel()
	if err != nil {
		return nil, err
	}

	replies, err := ch.Consume(directReplyTo, "", true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume reply-to: %w", err)
	}

	c := &RPCClient{
		ch:      ch,
		log:     log,
		timeout: timeout,
		pending: make(map[string]chan amqp.Delivery),
	}

	go c.dispatch(ctx, replies)
	return c, nil
}

func (c *RPCClient) dispatch(ctx context.Context, replies <-chan amqp.Delivery) {
	defer c.ch.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-replies:
			if !ok {
				c.log.Warn(logger.Entry{Action: "rpc_reply_channel_closed", Message: directReplyTo})
				return
			}
			c.mu.Lock()
			waiter, found := c.pending[d.CorrelationId]
			delete(c.pending, d.CorrelationId)
			c.mu.Unlock()

			if !found {
				c.log.Debug(logger.Entry{Action: "rpc_reply_orphaned", Message: d.CorrelationId})
				continue
			}
			waiter <- d
		}
	}
}

// Call публикует запрос и ждет ответ; resp заполняется из поля data
func (c *RPCClient) Call(ctx context.Context, exchange, routingKey string, req, resp any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	corrID := uuid.NewString()
	waiter := make(chan amqp.Delivery, 1)

	c.mu.Lock()
	c.pending[corrID] = waiter
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, corrID)
		c.mu.Unlock()
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.pubMu.Lock()
	err = c.ch.PublishWithContext(callCtx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: corrID,
		ReplyTo:       directReplyTo,
		Body:          body,
		Timestamp:     time.Now(),
	})
	c.pubMu.Unlock()
	if err != nil {
		return fmt.Errorf("publish rpc request: %w", err)
	}

	select {
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return ErrRPCTimeout
		}
		return callCtx.Err()
	case d := <-waiter:
		var env RPCResponse
		if err := json.Unmarshal(d.Body, &env); err != nil {
			return fmt.Errorf("decode rpc response: %w", err)
		}
		if env.Error != nil {
			return env.Error
		}
		if resp == nil || len(env.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.Data, resp); err != nil {
			return fmt.Errorf("decode rpc data: %w", err)
		}
		return nil
	}
}

// RPCHandler обрабатывает тело запроса и возвращает данные ответа.
// Ошибка типа *RPCError уходит клиенту как есть, остальные — как internal.
type RPCHandler func(ctx context.Context, body []byte) (any, error)

// ServeRPC читает очередь и отвечает на каждый запрос в его reply-to
func ServeRPC(ctx context.Context, conn *RabbitMQ, queue string, handler RPCHandler, log *logger.Logger) error {
	return conn.Consume(ctx, queue, "", func(d amqp.Delivery) {
		env := RPCResponse{}

		data, err := handler(ctx, d.Body)
		if err != nil {
			var rpcErr *RPCError
			if !errors.As(err, &rpcErr) {
				log.Error(logger.Entry{
					Action:  "rpc_handler_failed",
					Message: err.Error(),
					Error:   &logger.ErrObj{Msg: err.Error()},
					Additional: map[string]any{
						"queue":          queue,
						"correlation_id": d.CorrelationId,
					},
				})
				rpcErr = &RPCError{Code: RPCInternal, Message: "internal error"}
			}
			env.Error = rpcErr
		} else if data != nil {
			raw, mErr := json.Marshal(data)
			if mErr != nil {
				env.Error = &RPCError{Code: RPCInternal, Message: "encode response"}
			} else {
				env.Data = raw
			}
		}

		if d.ReplyTo != "" {
			body, _ := json.Marshal(env)
			if pErr := conn.PublishMessage(ctx, "", d.ReplyTo, amqp.Publishing{
				ContentType:   "application/json",
				CorrelationId: d.CorrelationId,
				Body:          body,
			}); pErr != nil {
				log.Error(logger.Entry{
					Action:  "rpc_reply_failed",
					Message: pErr.Error(),
					Error:   &logger.ErrObj{Msg: pErr.Error()},
				})
			}
		}

		// ответ (или ошибка) отправлен, повтор запроса не нужен
		_ = d.Ack(false)
	})
}
