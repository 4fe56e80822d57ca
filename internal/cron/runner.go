// Package cron runs the background calendar jobs: the Google sync pass
// and upcoming meeting reminders.
package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/meetwise/meetwise/internal/calendar"
	apperrors "github.com/meetwise/meetwise/internal/errors"
	"github.com/meetwise/meetwise/internal/metrics"
)

// Config holds the runner schedule.
type Config struct {
	SyncSchedule     string // cron spec for the Google sync pass
	ReminderSchedule string // cron spec for the reminder scan
	ReminderLead     time.Duration
}

// Runner owns the cron scheduler.
type Runner struct {
	config  Config
	service *calendar.Service
	metrics *metrics.Metrics
	logger  *zap.Logger
	cron    *cron.Cron
	running bool
	mu      sync.RWMutex

	// reminded tracks events already announced so a reminder fires once.
	reminded   map[string]bool
	remindedMu sync.Mutex
}

// NewRunner creates a runner; schedules default to every 5 minutes for
// sync and every minute for reminders.
func NewRunner(config Config, service *calendar.Service, m *metrics.Metrics, logger *zap.Logger) *Runner {
	if config.SyncSchedule == "" {
		config.SyncSchedule = "@every 5m"
	}
	if config.ReminderSchedule == "" {
		config.ReminderSchedule = "@every 1m"
	}
	if config.ReminderLead <= 0 {
		config.ReminderLead = 10 * time.Minute
	}

	return &Runner{
		config:   config,
		service:  service,
		metrics:  m,
		logger:   logger,
		cron:     cron.New(),
		reminded: make(map[string]bool),
	}
}

// Start registers the jobs and starts the scheduler.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("cron runner already running")
	}

	if _, err := r.cron.AddFunc(r.config.SyncSchedule, r.runSync); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", r.config.SyncSchedule, err)
	}
	if _, err := r.cron.AddFunc(r.config.ReminderSchedule, r.runReminders); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", r.config.ReminderSchedule, err)
	}

	r.cron.Start()
	r.running = true
	r.logger.Info("Cron runner started",
		zap.String("sync", r.config.SyncSchedule),
		zap.String("reminders", r.config.ReminderSchedule),
	)
	return nil
}

// Stop stops the scheduler and waits for in-flight jobs.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("Cron runner stopped")
}

// IsRunning returns whether the runner is active
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *Runner) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := r.service.SyncFromGoogle(ctx)
	if errors.Is(err, apperrors.ErrNotConnected) {
		// Nothing to do until the user links their account.
		return
	}
	r.metrics.RecordSyncRun(err)
	if err != nil {
		r.logger.Error("Calendar sync failed", zap.Error(err))
		return
	}

	if result.Added+result.Updated+result.Deleted > 0 {
		r.logger.Info("Calendar sync applied changes",
			zap.Int("added", result.Added),
			zap.Int("updated", result.Updated),
			zap.Int("deleted", result.Deleted),
		)
	}
}

func (r *Runner) runReminders() {
	events, err := r.service.UpcomingEvents(20)
	if err != nil {
		r.logger.Error("Failed to load upcoming events", zap.Error(err))
		return
	}

	now := time.Now()
	r.remindedMu.Lock()
	defer r.remindedMu.Unlock()

	for i := range events {
		event := &events[i]
		until := event.StartTime.Sub(now)
		if until < 0 || until > r.config.ReminderLead {
			continue
		}
		if r.reminded[event.ID] {
			continue
		}
		r.reminded[event.ID] = true

		r.logger.Info("Meeting starting soon",
			zap.String("event_id", event.ID),
			zap.String("title", event.Title),
			zap.String("starts_in", until.Round(time.Minute).String()),
		)
	}

	// Prune entries for meetings already started.
	for id := range r.reminded {
		found := false
		for i := range events {
			if events[i].ID == id {
				found = true
				break
			}
		}
		if !found {
			delete(r.reminded, id)
		}
	}
}
