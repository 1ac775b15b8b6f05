package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gmp-id/gmpcms/internal/database"
)

var (
	runMigrations       = database.RunMigrations
	rollbackMigrations  = database.RollbackMigrations
	getMigrationVersion = database.GetMigrationVersion
	forceMigration      = database.ForceMigrationVersion
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Apply, roll back or inspect the embedded schema migrations.

serve applies pending migrations on start; these commands are for
deployments that migrate separately.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Migrations completed")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default: 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := rollbackMigrations(cfg.DatabaseURL, steps); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Rolled back %d migration(s)\n", steps)
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		version, dirty, err := getMigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if version == 0 {
			fmt.Fprintln(out, "No migrations applied")
			return nil
		}
		fmt.Fprintf(out, "Schema version %d", version)
		if dirty {
			fmt.Fprint(out, " (dirty)")
		}
		fmt.Fprintln(out)
		return nil
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Mark a version as applied and clear the dirty flag",
	Long: `After a migration fails halfway, fix the schema by hand and then record
the version it is now at. No migration SQL is executed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("version must be a non-negative integer, got %q", args[0])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := forceMigration(cfg.DatabaseURL, uint(version)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Schema marked as version %d\n", version)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateForceCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
	RootCmd.AddCommand(migrateCmd)
}
