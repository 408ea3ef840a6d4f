package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pharmassist-backend/migrations"
)

func migrateCMD() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			if err := migrations.Migrate(cfg.DatabaseURL, args[0], steps); err != nil {
				return err
			}
			logger.Info("Migrations applied", zap.String("direction", args[0]), zap.Int("steps", steps))
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	return cmd
}
