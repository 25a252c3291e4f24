package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"whatsrelay/internal/config"
	"whatsrelay/internal/logging"
	"whatsrelay/internal/metrics"
	"whatsrelay/internal/service"
)

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete message mappings and cached groups past their retention once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, logFile, err := logging.New(cfg.Logging, verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			defer logFile.Close()

			db, err := openDatabase(cmd.Context(), cfg.Database.Path, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			m := metrics.New()
			scheduler := service.NewScheduler(db, service.NewGroupDirectory(db, m, logger), cfg.Database.Cleanup, m, logger)
			result, err := scheduler.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d message mappings and %d groups\n", result.Mappings, result.Groups)
			return nil
		},
	}
}
