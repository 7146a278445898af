package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/go-logr/logr"

	"github.com/i474232898/pedocs-forecast/internal/metrics"
)

// Purger drops expired entries and reports how many were removed.
type Purger interface {
	Purge() int
}

// Scheduler periodically purges expired weather responses from the cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	purger    Purger
	interval  time.Duration
	logger    logr.Logger
}

// New creates a new Scheduler.
func New(purger Purger, interval time.Duration, logger logr.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		purger:    purger,
		interval:  interval,
		logger:    logger.WithName("scheduler"),
	}
}

// Start schedules the purge job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.purger == nil {
		s.logger.Info("no purgeable cache configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		s.RunOnce()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce purges the cache and records the result.
func (s *Scheduler) RunOnce() int {
	n := s.purger.Purge()
	metrics.CachePurged.Add(float64(n))
	if n > 0 {
		s.logger.V(1).Info("purged expired weather responses", "entries", n)
	}
	return n
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
