package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/tradegate/pkg/logger"
)

// Scheduler runs registered maintenance jobs on their cron schedules.
// A failed run is retried once after a short delay; the last result per job
// is kept for the status endpoint.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]Job
	lastRun map[string]JobResult
	mu      sync.RWMutex

	retryDelay time.Duration
}

// New creates a scheduler (cron expressions include a seconds field)
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		logger:     log,
		jobs:       make(map[string]Job),
		lastRun:    make(map[string]JobResult),
		retryDelay: 30 * time.Second,
	}
}

// AddJob registers a job with the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	if _, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(job)
	}); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = job

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job registered")

	return nil
}

// Start starts the cron loop
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop stops the cron loop and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunJob triggers a job immediately, outside its schedule
func (s *Scheduler) RunJob(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	go s.runJob(job)
	return nil
}

// LastResults returns the most recent result per job
func (s *Scheduler) LastResults() map[string]JobResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]JobResult, len(s.lastRun))
	for name, result := range s.lastRun {
		out[name] = result
	}
	return out
}

// runJob executes one job, retrying once on failure
func (s *Scheduler) runJob(job Job) {
	name := job.Name()
	started := time.Now()

	s.logger.WithField("job", name).Info("Job started")

	err := job.Run(context.Background())
	if err != nil {
		s.logger.WithError(err).WithField("job", name).Warn("Job failed, retrying")
		time.Sleep(s.retryDelay)
		err = job.Run(context.Background())
	}

	result := JobResult{
		JobName:   name,
		StartTime: started,
		Duration:  time.Since(started),
		Success:   err == nil,
	}
	if err != nil {
		result.Error = err.Error()
	}

	s.mu.Lock()
	s.lastRun[name] = result
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).WithField("job", name).Error("Job failed after retry")
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"duration": result.Duration.String(),
	}).Info("Job completed")
}
