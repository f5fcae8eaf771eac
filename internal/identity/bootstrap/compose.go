package bootstrap

import (
	"context"
	"net/http"

	"carmarket/internal/identity/adapters/in/in_amqp"
	"carmarket/internal/identity/adapters/in/transport"
	"carmarket/internal/identity/adapters/out/cache"
	"carmarket/internal/identity/adapters/out/repo"
	"carmarket/internal/identity/application/usecase"
	"carmarket/internal/shared/auth"
	sharedcache "carmarket/internal/shared/cache"
	"carmarket/internal/shared/config"
	db_conn "carmarket/internal/shared/db"
	"carmarket/internal/shared/httpserver"
	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/mq"
	"carmarket/internal/shared/notify"
	"carmarket/internal/shared/scheduler"
)

// Run запускает Identity Service
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) {
	log.Info(logger.Entry{Action: "identity_service_starting", Message: "initializing identity service"})

	// 1. PostgreSQL
	dbPool, err := db_conn.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer db_conn.Close(dbPool, log)

	if err := db_conn.Migrate(ctx, dbPool, log); err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_migration_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// 2. Redis для OTP
	redisClient, err := sharedcache.NewRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "redis_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer sharedcache.Close(redisClient, log)

	// 3. RabbitMQ
	mqConn, err := mq.NewRabbitMQ(ctx, cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "rabbitmq_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn, log); err != nil {
		log.Error(logger.Entry{
			Action:  "rabbitmq_topology_setup_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// 4. Адаптеры
	userRepo := repo.NewUserPgRepository(dbPool, log)
	otpStore := cache.NewOTPRedisStore(redisClient, cfg.Identity.MaxOTPAttempts, log)
	notifier := notify.NewPublisher(mqConn, log)
	jwtService := auth.NewJWTService(cfg.JWT)

	// 5. Use cases
	lockout := usecase.Lockout{
		MaxAttempts:   cfg.Identity.MaxLoginAttempts,
		BlockDuration: cfg.Identity.BlockDuration,
	}
	otpTTL := cfg.Identity.OTPTTL

	uc := transport.UseCases{
		Register:       usecase.NewRegisterService(userRepo, log),
		Login:          usecase.NewLoginService(userRepo, otpStore, jwtService, notifier, lockout, otpTTL, log),
		VerifyOTP:      usecase.NewVerifyOTPService(userRepo, otpStore, log),
		ResendOTP:      usecase.NewResendOTPService(userRepo, otpStore, notifier, otpTTL, log),
		ForgotPassword: usecase.NewForgotPasswordService(userRepo, otpStore, notifier, otpTTL, log),
		ResetPassword:  usecase.NewResetPasswordService(userRepo, otpStore, notifier, log),
		ChangePassword: usecase.NewChangePasswordService(userRepo, notifier, log),
		UpdateProfile:  usecase.NewUpdateProfileService(userRepo, log),
	}

	// 6. RPC user_info для vehicle сервиса
	userInfo := in_amqp.NewUserInfoServer(usecase.NewLookupUserService(userRepo, log), log)
	if err := userInfo.Start(ctx, mqConn); err != nil {
		log.Fatal(logger.Entry{
			Action:  "user_info_rpc_start_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// 7. Фоновые задачи
	unblock := usecase.NewUnblockSweepService(userRepo, cfg.Identity.BlockDuration, log)
	birthdays := usecase.NewBirthdaySweepService(userRepo, notifier, cfg.Dealership.Location(), log)

	go scheduler.Every(ctx, "unblock_users", cfg.Scheduler.UnblockInterval, sweepJob(unblock.Execute), log)
	go scheduler.Every(ctx, "birthday_greetings", cfg.Scheduler.BirthdayInterval, sweepJob(birthdays.Execute), log)

	worker := notify.NewWorker(mqConn, notify.NewLogSink(log), log)
	if err := worker.Start(ctx); err != nil {
		log.Error(logger.Entry{
			Action:  "notify_worker_start_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// 8. HTTP
	mux := http.NewServeMux()
	handler := transport.NewHTTPHandler(uc, log)
	handler.RegisterRoutes(mux, auth.Middleware(jwtService, log))

	httpserver.Serve(ctx, cfg.Services.IdentityServicePort, mux, log)

	log.Info(logger.Entry{Action: "identity_service_stopped", Message: "identity service stopped"})
}

func sweepJob[T any](fn func(ctx context.Context) (T, error)) scheduler.Job {
	return func(ctx context.Context) error {
		_, err := fn(ctx)
		return err
	}
}
