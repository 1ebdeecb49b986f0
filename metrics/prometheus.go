package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	startTime = time.Now()

	UptimeSeconds = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "rewards",
		Name:      "uptime_seconds",
		Help:      "Time passed since the rewards service started in seconds",
	}, func() float64 { return time.Since(startTime).Seconds() })

	CheckinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rewards",
		Name:      "checkins_total",
		Help:      "Successful daily check-ins",
	})

	// status = pending/claimed
	TaskCompletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rewards",
		Name:      "task_completions_total",
		Help:      "Task completion records written, by resulting status",
	}, []string{"status"})

	RedemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rewards",
		Name:      "redemptions_total",
		Help:      "Successful tier redemptions",
	}, []string{"tier"})

	RejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rewards",
		Name:      "rejections_total",
		Help:      "Operations rejected (reason=already_checked_in/on_cooldown/insufficient_balance/...)",
	}, []string{"operation", "reason"})

	LedgerConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rewards",
		Name:      "ledger_conflicts_total",
		Help:      "Optimistic version conflicts on the user ledger",
	}, []string{"operation"})

	// source = checkin/task
	TokensGrantedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rewards",
		Name:      "tokens_granted_total",
		Help:      "Tokens credited to user balances",
	}, []string{"source"})

	WorkerRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rewards",
		Name:      "worker_runs_total",
		Help:      "Background job runs (status=success/failure)",
	}, []string{"worker", "status"})
)

// ObserveWorkerRun counts one job run.
func ObserveWorkerRun(worker string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	WorkerRunsTotal.WithLabelValues(worker, status).Inc()
}
