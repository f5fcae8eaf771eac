package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	identityboot "carmarket/internal/identity/bootstrap"
	"carmarket/internal/shared/config"
	"carmarket/internal/shared/logger"
	vehicleboot "carmarket/internal/vehicle/bootstrap"

	"github.com/spf13/cobra"
)

// Сервисы, которые умеет запускать serve
const (
	ServiceVehicle  = "vehicle"
	ServiceIdentity = "identity"
	ServiceAll      = "all"
)

type runner func(ctx context.Context, cfg config.Config, log *logger.Logger)

var services = map[string]struct {
	name string
	run  runner
}{
	ServiceVehicle:  {"vehicle-service", vehicleboot.Run},
	ServiceIdentity: {"identity-service", identityboot.Run},
}

// NewServeCommand создает команду serve
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run vehicle, identity or both services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := selectServices(service)
			if err != nil {
				return err
			}
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			RunServices(ctx, cfg, rootOpts.LogLevel, names...)
			return nil
		},
	}

	cmd.Flags().StringVarP(&service, "service", "s", ServiceAll, "vehicle|identity|all")
	return cmd
}

func selectServices(service string) ([]string, error) {
	switch service {
	case ServiceAll:
		return []string{ServiceVehicle, ServiceIdentity}, nil
	case ServiceVehicle, ServiceIdentity:
		return []string{service}, nil
	default:
		return nil, fmt.Errorf("unknown service %q: must be one of vehicle, identity, all", service)
	}
}

// RunServices запускает сервисы, каждый со своим логгером, и ждет их остановки
func RunServices(ctx context.Context, cfg config.Config, level string, names ...string) {
	var wg sync.WaitGroup
	for _, name := range names {
		svc, ok := services[name]
		if !ok {
			continue
		}
		log := newLogger(svc.name, level)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer log.Sync()
			svc.run(ctx, cfg, log)
		}()
	}
	wg.Wait()
}

func newLogger(service, level string) *logger.Logger {
	if level == "" {
		return logger.NewLogger(service)
	}
	return logger.NewLoggerWithLevel(service, level)
}
