package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"carmarket/internal/shared/logger"
)

// Job — периодическая задача; ошибка логируется, цикл продолжается
type Job func(ctx context.Context) error

// Every запускает job раз в period до отмены ctx. Первый запуск — сразу.
// Паника внутри job не роняет процесс.
func Every(ctx context.Context, name string, period time.Duration, job Job, log *logger.Logger) {
	if period <= 0 {
		log.Warn(logger.Entry{Action: "scheduler_job_disabled", Message: name})
		return
	}

	log.Info(logger.Entry{
		Action:     "scheduler_job_started",
		Message:    name,
		Additional: map[string]any{"period": period.String()},
	})

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		runOnce(ctx, name, job, log)

		select {
		case <-ctx.Done():
			log.Info(logger.Entry{Action: "scheduler_job_stopped", Message: name})
			return
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, name string, job Job, log *logger.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(logger.Entry{
				Action:  "scheduler_job_panicked",
				Message: name,
				Error:   &logger.ErrObj{Msg: fmt.Sprint(r), Stack: string(debug.Stack())},
			})
		}
	}()

	started := time.Now()
	if err := job(ctx); err != nil {
		log.Error(logger.Entry{
			Action:  "scheduler_job_failed",
			Message: name,
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return
	}
	log.Debug(logger.Entry{
		Action:     "scheduler_job_done",
		Message:    name,
		Additional: map[string]any{"took_ms": time.Since(started).Milliseconds()},
	})
}
