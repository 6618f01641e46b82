package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

// RunDaemon schedules every scenario with an interval and runs the others
// once. It returns when ctx is cancelled.
func RunDaemon(ctx context.Context, handler *SyncHandler, scenarios []SyncConfig) error {
	scheduler := gocron.NewScheduler(time.UTC)

	once := make([]SyncConfig, 0)
	scheduled := 0
	for _, sc := range scenarios {
		if sc.Interval <= 0 {
			once = append(once, sc)
			continue
		}
		scenario := sc
		_, jobErr := scheduler.Every(scenario.Interval).Minutes().Do(func() {
			if runErr := handler.Run(ctx, []SyncConfig{scenario}); runErr != nil {
				log.Warn(fmt.Sprintf("Scheduled sync of %s failed: %s", scenario.Source, runErr))
			}
		})
		if jobErr != nil {
			return fmt.Errorf("scheduling %s: %w", scenario.Source, jobErr)
		}
		log.Info(fmt.Sprintf("Scheduled %s every %d minute(s)", scenario.Source, scenario.Interval))
		scheduled++
	}

	if len(once) > 0 {
		if runErr := handler.Run(ctx, once); runErr != nil {
			log.Warn(fmt.Sprintf("One-off sync failed: %s", runErr))
		}
	}
	if scheduled == 0 {
		log.Info("No scenario has an interval, nothing to schedule")
		return nil
	}

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()
	log.Info("Scheduler stopped")
	return nil
}
