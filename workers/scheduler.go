// workers/scheduler.go
package workers

import (
	"context"
	"fmt"
	"time"

	"agent-grid-rewards/logging"
	"agent-grid-rewards/metrics"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Job is one periodic background job.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// NewScheduler builds a gocron scheduler on clock. Jobs are registered with
// Schedule and start running once the scheduler is started.
func NewScheduler(clock clockwork.Clock, log logging.Logger) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return s, nil
}

// Schedule registers job to run every interval, once immediately on start.
// Overlapping runs of the same job are skipped.
func Schedule(ctx context.Context, s gocron.Scheduler, job Job, interval time.Duration, log logging.Logger) error {
	_, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { runOnce(ctx, job, log) }),
		gocron.WithName(job.Name()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
	}
	log.Info("job scheduled", "job", job.Name(), "interval", interval.String())
	return nil
}

func runOnce(ctx context.Context, job Job, log logging.Logger) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := job.Run(ctx)
	metrics.ObserveWorkerRun(job.Name(), err)
	if err != nil {
		log.Error("job failed", "job", job.Name(), "error", err)
		return
	}
	log.Debug("job finished", "job", job.Name(), "took", time.Since(start).String())
}
