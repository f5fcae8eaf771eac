package bootstrap

import (
	"context"
	"net/http"
	"time"

	"carmarket/internal/shared/auth"
	"carmarket/internal/shared/config"
	db_conn "carmarket/internal/shared/db"
	"carmarket/internal/shared/httpserver"
	"carmarket/internal/shared/logger"
	"carmarket/internal/shared/mq"
	"carmarket/internal/shared/notify"
	"carmarket/internal/shared/scheduler"
	"carmarket/internal/shared/ws"
	"carmarket/internal/vehicle/adapters/in/transport"
	"carmarket/internal/vehicle/adapters/out/out_amqp"
	"carmarket/internal/vehicle/adapters/out/out_ws"
	"carmarket/internal/vehicle/adapters/out/repo"
	"carmarket/internal/vehicle/application/usecase"
	"carmarket/internal/vehicle/domain"
)

const rpcTimeout = 5 * time.Second

// Run запускает Vehicle Service
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) {
	log.Info(logger.Entry{Action: "vehicle_service_starting", Message: "initializing vehicle service"})

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

	// 2. RabbitMQ
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

	rpcClient, err := mq.NewRPCClient(ctx, mqConn, rpcTimeout, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "rpc_client_init_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// 3. Репозитории и внешние адаптеры
	carRepo := repo.NewCarPgRepository(dbPool, log)
	ledgerRepo := repo.NewLedgerPgRepository(dbPool, log)
	bookingRepo := repo.NewBookingPgRepository(dbPool, log)

	directory := out_amqp.NewIdentityDirectory(rpcClient, log)
	notifier := notify.NewPublisher(mqConn, log)

	jwtService := auth.NewJWTService(cfg.JWT)
	hub := ws.NewHub(jwtService.ExtractUserID, log)
	go hub.Run(ctx)
	feed := out_ws.NewBookingFeed(hub, log)

	// 4. Use cases
	loc := cfg.Dealership.Location()
	dealer := domain.Dealer{Name: cfg.Dealership.Name, Address: cfg.Dealership.Address}
	cascade := usecase.NewCascadeCancelService(bookingRepo, notifier, feed, log)

	uc := transport.UseCases{
		RegisterCar:       usecase.NewRegisterCarService(carRepo, dealer.Name, log),
		GetCar:            usecase.NewGetCarService(carRepo, log),
		ListCars:          usecase.NewListCarsService(carRepo, log),
		ListAvailableCars: usecase.NewListAvailableCarsService(carRepo, log),
		UpdateCar:         usecase.NewUpdateCarService(carRepo, log),
		DeleteCar:         usecase.NewDeleteCarService(carRepo, cascade, log),
		BuyCar:            usecase.NewBuyCarService(carRepo, directory, cascade, notifier, log),
		SellCar:           usecase.NewSellCarService(carRepo, directory, notifier, dealer.Name, log),

		CreateBooking:     usecase.NewCreateBookingService(carRepo, bookingRepo, directory, notifier, feed, dealer, loc, log),
		ConfirmBooking:    usecase.NewConfirmBookingService(bookingRepo, notifier, feed, log),
		RescheduleBooking: usecase.NewRescheduleBookingService(bookingRepo, notifier, feed, loc, log),
		CancelBooking:     usecase.NewCancelBookingService(bookingRepo, notifier, feed, log),
		ListBookings:      usecase.NewListBookingsService(bookingRepo, log),

		UserReport:   usecase.NewUserReportService(carRepo, ledgerRepo, bookingRepo, log),
		DealerReport: usecase.NewDealerReportService(carRepo, ledgerRepo, bookingRepo, dealer.Name, log),
	}

	// 5. Фоновые задачи
	reminders := usecase.NewReminderSweepService(bookingRepo, notifier, log)
	completion := usecase.NewCompletionSweepService(bookingRepo, cfg.Scheduler.CompletionGrace, log)

	go scheduler.Every(ctx, "booking_reminders", cfg.Scheduler.ReminderInterval, sweepJob(reminders.Execute), log)
	go scheduler.Every(ctx, "booking_completion", cfg.Scheduler.CompletionInterval, sweepJob(completion.Execute), log)

	worker := notify.NewWorker(mqConn, notify.NewLogSink(log), log)
	if err := worker.Start(ctx); err != nil {
		log.Error(logger.Entry{
			Action:  "notify_worker_start_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// 6. HTTP
	mux := http.NewServeMux()
	handler := transport.NewHTTPHandler(uc, hub.ServeWS, log)
	handler.RegisterRoutes(mux, auth.Middleware(jwtService, log))

	httpserver.Serve(ctx, cfg.Services.VehicleServicePort, mux, log)

	log.Info(logger.Entry{Action: "vehicle_service_stopped", Message: "vehicle service stopped"})
}

func sweepJob[T any](fn func(ctx context.Context) (T, error)) scheduler.Job {
	return func(ctx context.Context) error {
		_, err := fn(ctx)
		return err
	}
}
