package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agent-grid-rewards/chain"
	"agent-grid-rewards/config"
	"agent-grid-rewards/database"
	"agent-grid-rewards/handlers"
	"agent-grid-rewards/logging"
	"agent-grid-rewards/services"
	"agent-grid-rewards/utils"
	"agent-grid-rewards/workers"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("skip-seed", false, "Do not upsert the task catalog on startup")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background jobs",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, db, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := database.Migrate(db); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, _ := cfg.Location()
	clock := clockwork.NewRealClock()
	core := services.NewCore(db, clock, loc, log)
	core.MaxAttempts = cfg.LedgerMaxAttempts
	core.NotificationHosts = cfg.NotificationAllowedHosts
	core.Notifier = services.NewWebhookNotifier(cfg.NotificationTargetURL, log)
	deps := handlers.NewDependencies(core)

	if skip, _ := cmd.Flags().GetBool("skip-seed"); !skip {
		seedCatalog(ctx, cfg, deps.Tasks, log)
	}

	sched, err := workers.NewScheduler(clock, log)
	if err != nil {
		return err
	}
	if err := scheduleJobs(ctx, cfg, sched, deps, clock, log); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Warn("scheduler shutdown failed", "error", err)
		}
	}()

	app := handlers.NewApp(cfg, deps)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr, "origins", cfg.AllowedOrigins)
		serveErr <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

func seedCatalog(ctx context.Context, cfg *config.Config, tasks *services.TaskService, log logging.Logger) {
	inputs, err := services.LoadTaskCatalog(cfg.TaskCatalogPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info("no task catalog found, skipping seed", "path", cfg.TaskCatalogPath)
			return
		}
		log.Warn("task catalog not loaded", "path", cfg.TaskCatalogPath, "error", err)
		return
	}
	if _, err := tasks.SeedTasks(ctx, inputs); err != nil {
		log.Warn("task catalog seed failed", "error", err)
	}
}

func scheduleJobs(ctx context.Context, cfg *config.Config, sched gocron.Scheduler, deps handlers.Dependencies, clock clockwork.Clock, log logging.Logger) error {
	var store utils.ObjectStore
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Store(ctx, cfg.R2)
		if err != nil {
			return err
		}
		store = r2
	} else {
		log.Info("R2 not configured, weekly archives disabled")
	}
	agg := workers.NewWeeklyAggregator(deps.Leaderboard, store, clock, log)
	if err := workers.Schedule(ctx, sched, agg, cfg.WeeklyAggregationInterval, log); err != nil {
		return err
	}

	if cfg.ProfileSyncURL != "" {
		sync := workers.NewProfileSyncWorker(deps.Users, cfg.ProfileSyncURL, cfg.ProfileSyncToken, utils.HTTPClient, log)
		if err := workers.Schedule(ctx, sched, sync, cfg.ProfileSyncInterval, log); err != nil {
			return err
		}
	}

	if cfg.ChainRPCURL != "" {
		oracle, err := chain.Dial(cfg.ChainRPCURL, cfg.TokenContract)
		if err != nil {
			return err
		}
		mirror := workers.NewTokenMirrorWorker(deps.Users, oracle, log)
		if err := workers.Schedule(ctx, sched, mirror, cfg.TokenMirrorInterval, log); err != nil {
			return err
		}
	}
	return nil
}
