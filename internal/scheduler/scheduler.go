// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"weather-notify/internal/common/logger"
	"weather-notify/internal/fanout"

	"github.com/go-co-op/gocron"
)

// Runner triggers one fan-out pass.
type Runner interface {
	Run(ctx context.Context) (fanout.Report, error)
}

// Scheduler fires the morning fan-out once per day at a fixed UTC hour.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	hour      int
	logger    logger.Logger
}

func New(runner Runner, hour int, log logger.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	// One run at a time; a slow run must never overlap the next trigger.
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		hour:      hour,
		logger:    log.WithFields(map[string]interface{}{"component": "scheduler"}),
	}
}

// Start schedules the daily job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	at := fmt.Sprintf("%02d:00", s.hour)

	_, err := s.scheduler.Every(1).Day().At(at).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		s.logger.Info("scheduled fan-out starting", map[string]interface{}{"at": at})
		report, err := s.runner.Run(ctx)
		if err != nil {
			s.logger.Error("scheduled fan-out failed", map[string]interface{}{"error": err.Error()})
			return
		}
		s.logger.Info("scheduled fan-out complete", map[string]interface{}{
			"runId":        report.RunID,
			"totalBatches": report.TotalBatches,
		})
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
