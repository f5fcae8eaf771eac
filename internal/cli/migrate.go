package cli

import (
	"fmt"

	db_conn "carmarket/internal/shared/db"

	"github.com/spf13/cobra"
)

// NewMigrateCommand создает команду migrate
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded SQL migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log := newLogger("migrate", rootOpts.LogLevel)
			defer log.Sync()

			pool, err := db_conn.NewPool(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer db_conn.Close(pool, log)

			if err := db_conn.Migrate(cmd.Context(), pool, log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
