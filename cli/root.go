// Package cli is the process entry point: it owns the DB handle, the clock,
// the scheduler and the HTTP server.
package cli

import (
	"fmt"
	"os"

	"agent-grid-rewards/config"
	"agent-grid-rewards/database"
	"agent-grid-rewards/logging"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "agent-grid-rewards",
	Short: "Agent Grid rewards service",
	Long: `Agent Grid rewards service: daily check-in streaks, tasks, tiered
redemptions and leaderboards for the Agent Grid mini-app.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config, builds the logger and opens the database.
func bootstrap(requireGateway bool) (*config.Config, *logging.ZapLogger, *gorm.DB, error) {
	cfg := config.Load()
	if err := cfg.Validate(requireGateway); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	log, err := logging.NewZapLogger(logging.Environment(cfg.LogEnv))
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}
