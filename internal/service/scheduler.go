package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"whatsrelay/internal/constants"
	"whatsrelay/internal/metrics"
	"whatsrelay/internal/models"
)

// CleanupResult reports the rows removed by one cleanup run
type CleanupResult struct {
	Mappings int64 `json:"mappings"`
	Groups   int64 `json:"groups"`
}

// Scheduler runs the retention cleanup on a fixed interval
type Scheduler struct {
	cron    *cron.Cron
	store   MappingStore
	groups  *GroupDirectory
	cfg     models.CleanupConfig
	metrics *metrics.Metrics
	logger  *logrus.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

func NewScheduler(store MappingStore, groups *GroupDirectory, cfg models.CleanupConfig, m *metrics.Metrics, logger *logrus.Logger) *Scheduler {
	if cfg.IntervalHours <= 0 {
		cfg.IntervalHours = constants.DefaultCleanupIntervalHours
	}
	return &Scheduler{
		store:   store,
		groups:  groups,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// Start runs one cleanup right away and then every IntervalHours. It does
// nothing when cleanup is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled {
		s.logger.Info("Database cleanup is disabled")
		return nil
	}
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	schedule := fmt.Sprintf("@every %dh", s.cfg.IntervalHours)
	if _, err := s.cron.AddFunc(schedule, s.runScheduled); err != nil {
		s.cancel()
		return fmt.Errorf("failed to add cleanup job: %w", err)
	}

	s.cron.Start()
	s.running = true
	go s.runScheduled()

	s.logger.WithFields(logrus.Fields{
		"interval_hours":    s.cfg.IntervalHours,
		"mapping_retention": s.cfg.MessageMapRetentionDays,
		"group_retention":   s.cfg.GroupsRetentionDays,
	}).Info("Cleanup scheduler started")
	return nil
}

// Stop waits for a running cleanup to finish, bounded by the scheduler stop timeout
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	stopCtx := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-stopCtx.Done():
	case <-time.After(time.Duration(constants.DefaultSchedulerStopTimeoutSec) * time.Second):
		s.logger.Warn("Timed out waiting for cleanup job to finish")
	}
	s.logger.Info("Cleanup scheduler stopped")
}

func (s *Scheduler) runScheduled() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.WithError(err).Error("Scheduled cleanup failed")
	}
}

// RunOnce deletes message mappings and cached groups past their retention
func (s *Scheduler) RunOnce(ctx context.Context) (CleanupResult, error) {
	var result CleanupResult
	start := time.Now()

	mappings, err := s.store.CleanupMappingsOlderThan(ctx, s.cfg.MessageMapRetentionDays)
	if err != nil {
		return result, fmt.Errorf("failed to cleanup message mappings: %w", err)
	}
	result.Mappings = mappings
	s.metrics.RowsCleaned("message_map", mappings)

	groups, err := s.groups.Cleanup(ctx, s.cfg.GroupsRetentionDays)
	if err != nil {
		return result, err
	}
	result.Groups = groups

	s.logger.WithFields(logrus.Fields{
		"mappings_deleted": mappings,
		"groups_deleted":   groups,
		LogFieldDuration:   time.Since(start).Milliseconds(),
	}).Info("Database cleanup completed")
	return result, nil
}
