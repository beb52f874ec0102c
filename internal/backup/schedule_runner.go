package backup

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleRunner executes the create pipeline on a cron schedule until its
// context is cancelled. It is not a general task scheduler: the only action
// it knows is running a backup.
type ScheduleRunner struct {
	manager *Manager
	spec    string
	keep    int
}

// NewScheduleRunner creates a runner for the given cron expression.
// keep > 0 enforces retention after each successful backup.
func NewScheduleRunner(manager *Manager, spec string, keep int) *ScheduleRunner {
	return &ScheduleRunner{
		manager: manager,
		spec:    spec,
		keep:    keep,
	}
}

// Run blocks, executing backups at each scheduled time
func (sr *ScheduleRunner) Run(ctx context.Context) error {
	schedule, err := parseCronSchedule(sr.spec)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", sr.spec, err)
	}

	retention := NewRetentionManager(sr.manager.cfg, sr.manager.catalog)

	for {
		next := schedule.Next(time.Now())
		log.Printf("[Schedule] Next backup at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Printf("[Schedule] Stopping schedule runner")
			return nil
		case <-timer.C:
		}

		if _, err := sr.manager.CreateBackup(ctx, "scheduler"); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[Schedule] Scheduled backup failed: %v", err)
			continue
		}

		if sr.keep > 0 {
			if _, err := retention.EnforceRetention(sr.keep); err != nil {
				log.Printf("[Schedule] Retention enforcement failed: %v", err)
			}
		}
	}
}

func parseCronSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return parser.Parse(strings.TrimSpace(expr))
}
