// Package jobs runs background tasks on a cron schedule.
// scheduler.go reloads achievement definitions so rules edited in the
// database take effect without a restart. Sessions are never swept:
// they expire lazily when touched.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Reloader is implemented by the achievement engine.
type Reloader interface {
	Reload(ctx context.Context) error
}

type Scheduler struct {
	cron     *cron.Cron
	reloader Reloader
	schedule string
}

// NewScheduler creates a scheduler in loc. An empty schedule disables the
// reload job.
func NewScheduler(reloader Reloader, schedule string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		reloader: reloader,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedule != "" && s.reloader != nil {
		if _, err := s.cron.AddFunc(s.schedule, func() { s.reloadAchievements(ctx) }); err != nil {
			return fmt.Errorf("schedule achievement reload %q: %w", s.schedule, err)
		}
	}

	s.cron.Start()
	log.WithField("reload_cron", s.schedule).Info("Scheduler started")
	return nil
}

func (s *Scheduler) reloadAchievements(ctx context.Context) {
	if err := s.reloader.Reload(ctx); err != nil {
		// the engine keeps the previous definitions
		log.WithError(err).Error("[CRON] Achievement reload failed")
		return
	}
	log.Debug("[CRON] Achievement definitions reloaded")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Scheduler stopped")
}
