// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the slow background jobs: timer
// reconciliation and the archive sweep. The caller shuts the scheduler down.
func StartMaintenanceScheduler(ctx context.Context, live *LiveStateService, archive *ArchiveService, reconcileEvery, sweepEvery time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	// Every reconcileEvery: copy hot timers into durable live state
	_, err = sched.NewJob(
		gocron.DurationJob(reconcileEvery),
		gocron.NewTask(func() {
			n, err := live.ReconcileTimers(ctx)
			if err != nil {
				log.Printf("[Scheduler] Reconcile error: %v", err)
				return
			}
			if n > 0 {
				log.Printf("[Scheduler] Reconciled %d live state(s)", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("reconcile-timers"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule reconcile: %w", err)
	}

	// Every sweepEvery: tear down archived tournaments
	_, err = sched.NewJob(
		gocron.DurationJob(sweepEvery),
		gocron.NewTask(func() {
			n, err := archive.SweepArchived(ctx)
			if err != nil {
				log.Printf("[Scheduler] Archive sweep error: %v", err)
				return
			}
			if n > 0 {
				log.Printf("✅ Archived %d tournament(s)", n)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("archive-sweep"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule archive sweep: %w", err)
	}

	sched.Start()
	return sched, nil
}
