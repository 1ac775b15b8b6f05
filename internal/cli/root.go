package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gmp-id/gmpcms/internal/config"
	"github.com/gmp-id/gmpcms/internal/database"
)

var Version string

// Flag overrides, applied after the config file and environment.
var (
	flagDatabaseURL string
	flagPort        string
	flagDataDir     string
)

// RootCmd represents the root command
var RootCmd = &cobra.Command{
	Use:   "gmpcms",
	Short: "Content API for the GMP website",
	Long: `gmpcms serves the bilingual public content API and the admin API
behind the GMP website, backed by PostgreSQL.

Running without a subcommand starts the server.`,
	SilenceUsage: true,
	// Default to serve command if no subcommand provided
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runServe(cmd.Context())
		}
		return cmd.Help()
	},
}

// Execute is called by main. SIGINT and SIGTERM cancel the command context.
func Execute(version string) error {
	Version = version
	RootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

// loadConfig reads gmpcms.toml, the environment and .env, then applies flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithOverrides(flagDatabaseURL, flagPort, flagDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openDatabase connects the shared pool for one-shot commands.
var openDatabase = func() (*sql.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return database.DB, nil
}

func init() {
	RootCmd.PersistentFlags().StringVar(&flagDatabaseURL, "database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL)")
	RootCmd.PersistentFlags().StringVar(&flagPort, "port", "", "HTTP port (overrides PORT)")
	RootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Directory for GeoIP data and uploads (overrides DATA_DIR)")

	RootCmd.AddCommand(serveCmd)
}
