// workers/weekly_aggregator.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"agent-grid-rewards/logging"
	"agent-grid-rewards/services"
	"agent-grid-rewards/utils"

	"github.com/jonboulle/clockwork"
)

// WeeklyAggregator keeps weekly_scores current and archives each finished
// week's standings to the object store once.
type WeeklyAggregator struct {
	lb    *services.LeaderboardService
	store utils.ObjectStore // nil disables archiving
	clock clockwork.Clock
	log   logging.Logger
}

func NewWeeklyAggregator(lb *services.LeaderboardService, store utils.ObjectStore, clock clockwork.Clock, log logging.Logger) *WeeklyAggregator {
	return &WeeklyAggregator{lb: lb, store: store, clock: clock, log: log}
}

func (w *WeeklyAggregator) Name() string { return "weekly_aggregation" }

type weeklyArchive struct {
	WeekStart   string                      `json:"week_start"`
	GeneratedAt string                      `json:"generated_at"`
	Entries     []services.LeaderboardEntry `json:"entries"`
}

func (w *WeeklyAggregator) Run(ctx context.Context) error {
	week := w.lb.CurrentWeekKey()
	n, err := w.lb.RecomputeWeek(ctx, week)
	if err != nil {
		return err
	}
	w.log.Debug("weekly scores recomputed", "week_start", week, "users", n)

	if w.store == nil {
		return nil
	}
	return w.archive(ctx, w.lb.PreviousWeekKey())
}

func (w *WeeklyAggregator) archive(ctx context.Context, week string) error {
	done, err := w.lb.IsArchived(ctx, week)
	if err != nil || done {
		return err
	}

	// Claims that landed after the last run of that week still count.
	if _, err := w.lb.RecomputeWeek(ctx, week); err != nil {
		return err
	}
	entries, err := w.lb.WeekStandings(ctx, week, -1)
	if err != nil {
		return err
	}

	body, err := json.Marshal(weeklyArchive{
		WeekStart:   week,
		GeneratedAt: w.clock.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Entries:     entries,
	})
	if err != nil {
		return fmt.Errorf("failed to encode weekly archive: %w", err)
	}

	key := fmt.Sprintf("leaderboards/weekly/%s.json", week)
	url, err := w.store.Put(ctx, key, body, "application/json")
	if err != nil {
		return err
	}
	if err := w.lb.MarkArchived(ctx, week, key, url, len(entries)); err != nil {
		return err
	}
	w.log.Info("weekly leaderboard archived", "week_start", week, "entries", len(entries), "url", url)
	return nil
}
