package cache

import (
	"context"
	"fmt"
	"time"

	"carmarket/internal/shared/config"
	"carmarket/internal/shared/logger"

	"github.com/go-redis/redis/v8"
)

// NewRedis создает клиент Redis и проверяет подключение
func NewRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info(logger.Entry{
		Action:  "redis_connected",
		Message: fmt.Sprintf("connected to %s/%d", cfg.Addr, cfg.DB),
	})
	return client, nil
}

// Close закрывает клиент с логированием
func Close(client *redis.Client, log *logger.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Error(logger.Entry{Action: "redis_close_failed", Message: err.Error()})
		return
	}
	log.Info(logger.Entry{Action: "redis_closed", Message: "redis client closed"})
}
