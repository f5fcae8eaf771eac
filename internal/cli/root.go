package cli

import (
	"carmarket/internal/shared/config"

	"github.com/spf13/cobra"
)

// RootOptions — глобальные флаги всех команд
type RootOptions struct {
	ConfigDir string
	LogLevel  string
}

// NewRootCommand создает корневую команду carmarket
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "carmarket",
		Short:         "Car marketplace backend",
		Long:          "Vehicle and identity services of the car marketplace: catalogue, ledger, test drives and accounts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "directory with yaml configs (default $CONFIG_DIR or ./config)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), overrides LOG_LEVEL")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// loadConfig читает конфиг из --config-dir; без флага действует config.Load
func (o *RootOptions) loadConfig() (config.Config, error) {
	if o.ConfigDir == "" {
		return config.Load(), nil
	}
	return config.LoadFrom(o.ConfigDir)
}
