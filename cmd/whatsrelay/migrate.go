package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"whatsrelay/internal/config"
	"whatsrelay/internal/database"
	"whatsrelay/internal/migrations"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema management",
	}

	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateDownCmd())
	cmd.AddCommand(migrateVersionCmd())
	return cmd
}

// openForMigration opens the configured database without applying migrations
func openForMigration() (*database.Database, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openForMigration()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrations.Up(db.DB()); err != nil {
				return err
			}
			return printVersion(cmd, db)
		},
	}
}

func migrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default: 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) > 0 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				steps = n
			}

			db, err := openForMigration()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrations.Down(db.DB(), steps); err != nil {
				return err
			}
			return printVersion(cmd, db)
		},
	}
}

func migrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openForMigration()
			if err != nil {
				return err
			}
			defer db.Close()
			return printVersion(cmd, db)
		},
	}
}

func printVersion(cmd *cobra.Command, db *database.Database) error {
	version, dirty, err := migrations.Version(db.DB())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d (dirty: %v)\n", version, dirty)
	return nil
}
