// Package scheduler drives reconciliation and result passes on cron
// schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/racefuse/internal/logger"
	"github.com/yourusername/racefuse/internal/overlay"
	"github.com/yourusername/racefuse/internal/reconcile"
	"github.com/yourusername/racefuse/internal/service"
)

// RaceRunner is the part of the race service the scheduler drives
type RaceRunner interface {
	ReconcileDay(ctx context.Context, date time.Time) ([]*service.BatchSummary, error)
	SettleDay(ctx context.Context, date time.Time, opts ...overlay.ResultOption) (*service.SettlementSummary, error)
}

// Scheduler manages scheduled reconciliation jobs
type Scheduler struct {
	cron       *cron.Cron
	runner     RaceRunner
	logger     *logrus.Entry
	now        func() time.Time
	jobTimeout time.Duration
	mu         sync.RWMutex
	isRunning  bool
	jobIDs     []cron.EntryID
}

// NewScheduler creates a new scheduler. Jobs run in UTC and a job still
// running when its next tick fires is skipped.
func NewScheduler(runner RaceRunner, baseLogger *logrus.Logger) *Scheduler {
	if baseLogger == nil {
		baseLogger = logger.Discard()
	}
	entry := baseLogger.WithField("component", "scheduler")
	cronLogger := cron.PrintfLogger(entry)

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner:     runner,
		logger:     entry,
		now:        time.Now,
		jobTimeout: time.Hour,
		jobIDs:     make([]cron.EntryID, 0),
	}
}

// ScheduleReconcile reconciles every meeting of the current day on expr
func (s *Scheduler) ScheduleReconcile(expr string) error {
	return s.add(expr, "reconcile", s.RunReconcile)
}

// ScheduleResults attaches official results to the current day's stored
// races on expr
func (s *Scheduler) ScheduleResults(expr string) error {
	return s.add(expr, "results", s.RunResults)
}

func (s *Scheduler) add(expr, name string, job func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		job(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add %s job: %w", name, err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{"job": name, "schedule": expr}).Info("Scheduled job")
	return nil
}

// RunReconcile reconciles today's meetings once
func (s *Scheduler) RunReconcile(ctx context.Context) {
	date := s.now().UTC()
	start := time.Now()

	summaries, err := s.runner.ReconcileDay(ctx, date)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled reconciliation failed")
		return
	}

	races, failed := 0, 0
	for _, b := range summaries {
		races += len(b.Races)
		failed += b.Count(reconcile.StatusFailed)
	}
	s.logger.WithFields(logrus.Fields{
		"date":     date.Format("2006-01-02"),
		"meetings": len(summaries),
		"races":    races,
		"failed":   failed,
		"duration": time.Since(start).String(),
	}).Info("Scheduled reconciliation completed")
}

// RunResults runs one results pass over today's stored races
func (s *Scheduler) RunResults(ctx context.Context) {
	date := s.now().UTC()

	summary, err := s.runner.SettleDay(ctx, date)
	if err != nil {
		s.logger.WithError(err).Error("Scheduled results pass failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"date":    date.Format("2006-01-02"),
		"updated": summary.Updated,
		"applied": summary.Applied,
	}).Info("Scheduled results pass completed")
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	next := time.Time{}
	for _, id := range s.jobIDs {
		entry := s.cron.Entry(id)
		if entry.Valid() && (next.IsZero() || entry.Next.Before(next)) {
			next = entry.Next
		}
	}
	return next
}

// Entries returns the scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, id := range s.jobIDs {
		if entry := s.cron.Entry(id); entry.Valid() {
			entries = append(entries, entry)
		}
	}
	return entries
}
