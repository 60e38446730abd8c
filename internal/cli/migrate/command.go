package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/app"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/config"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
)

func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the SQL tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log, logCloser, err := logger.New(cfg.Logger)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logCloser.Close()

			stores, err := app.OpenStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			if err := stores.Migrate(); err != nil {
				return err
			}
			log.Infow("migration completed", "driver", cfg.Store.Driver, "tables", len(app.Models()))
			return nil
		},
	}
}
