package cli

import (
	"context"
	"time"

	"agent-grid-rewards/database"
	"agent-grid-rewards/services"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedTasksCmd)

	seedTasksCmd.Flags().StringP("file", "f", "", "Task catalog TOML file (defaults to TASK_CATALOG_PATH)")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and seed achievements",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, db, err := bootstrap(false)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("database migrated")
		return nil
	},
}

var seedTasksCmd = &cobra.Command{
	Use:   "seed-tasks",
	Short: "Upsert the task catalog by slug",
	Long: `Upsert every [[task]] entry of the TOML catalog by slug. Existing tasks
keep their IDs so completion history stays attached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, db, err := bootstrap(false)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			path = cfg.TaskCatalogPath
		}
		inputs, err := services.LoadTaskCatalog(path)
		if err != nil {
			return err
		}

		loc, _ := cfg.Location()
		core := services.NewCore(db, clockwork.NewRealClock(), loc, log)
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		n, err := services.NewTaskService(core).SeedTasks(ctx, inputs)
		if err != nil {
			return err
		}
		cmd.Printf("seeded %d task(s) from %s\n", n, path)
		return nil
	},
}
