package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
	appErrors "github.com/Manchinn/cslogbook-reconciler/pkg/errors"
)

type purgeStore interface {
	ListPurgeCandidates(ctx context.Context, cutoff time.Time) ([]models.Project, error)
	Purge(ctx context.Context, projectID string) error
}

// PurgeServiceConfig tunes the retention sweep.
type PurgeServiceConfig struct {
	RetentionDays int
	Clock         func() time.Time
}

// PurgeService permanently removes terminally-failed, acknowledged,
// sufficiently aged projects and their dependent trees. Each candidate is
// deleted in its own transaction; one failed candidate never blocks the
// rest.
type PurgeService struct {
	projects purgeStore
	runs     sweepRunStore
	metrics  *MetricsService
	logger   *zap.Logger

	state     *agentState
	retention time.Duration
	now       func() time.Time
}

// NewPurgeService constructs the agent. runs may be nil.
func NewPurgeService(projects purgeStore, runs sweepRunStore, metrics *MetricsService, logger *zap.Logger, cfg PurgeServiceConfig) *PurgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &PurgeService{
		projects:  projects,
		runs:      runs,
		metrics:   metrics,
		logger:    logger.With(zap.String("agent", models.AgentPurge)),
		state:     newAgentState(models.AgentPurge),
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		now:       cfg.Clock,
	}
}

// Stats returns the agent's last-run snapshot.
func (s *PurgeService) Stats() models.AgentStats {
	return s.state.Stats()
}

// TriggerNow starts a run on a detached context unless one is already in
// progress.
func (s *PurgeService) TriggerNow() error {
	if s.state.running.Load() {
		return appErrors.ErrSweepRunning
	}
	go func() {
		if err := s.Run(context.Background()); err != nil {
			s.logger.Error("manual purge failed", zap.Error(err))
		}
	}()
	return nil
}

// Run executes one retention sweep. Only a failed candidate listing is
// fatal; per-candidate failures roll back that candidate and continue.
func (s *PurgeService) Run(ctx context.Context) error {
	if !s.state.begin() {
		s.logger.Info("purge trigger skipped, run in progress")
		s.metrics.ObserveSweepSkip(models.AgentPurge)
		return appErrors.ErrSweepRunning
	}

	now := s.now()
	started := now
	var counters models.RunCounters
	var fatal error

	defer func() {
		finished := s.now()
		s.state.finish(finished, counters)
		s.metrics.ObserveSweep(models.AgentPurge, finished.Sub(started), 0, counters.Errors, fatal != nil)
		s.metrics.ObservePurged(counters.Purged)
		s.recordRun(started, finished, counters)
	}()

	cutoff := now.Add(-s.retention)
	candidates, err := s.projects.ListPurgeCandidates(ctx, cutoff)
	if err != nil {
		s.logger.Error("purge aborted, candidate query failed", zap.Error(err))
		fatal = err
		return err
	}

	for i := range candidates {
		p := &candidates[i]
		counters.TotalChecked++

		// The query already filters on every criterion; this guards
		// against rows drifting between the listing and the delete.
		if !p.PurgeEligible(cutoff) {
			s.logger.Warn("candidate no longer eligible, skipping", zap.String("project_id", p.ID))
			continue
		}

		if err := s.projects.Purge(ctx, p.ID); err != nil {
			s.logger.Error("purge failed for project", zap.String("project_id", p.ID), zap.Error(err))
			counters.Errors++
			continue
		}
		counters.Purged++
		s.logger.Info("project purged", zap.String("project_id", p.ID), zap.Timep("archived_at", p.ArchivedAt))
	}

	s.logger.Info("purge finished", zap.Int("purged", counters.Purged), zap.Int("total", counters.TotalChecked), zap.Int("errors", counters.Errors))
	return nil
}

func (s *PurgeService) recordRun(started, finished time.Time, counters models.RunCounters) {
	if s.runs == nil {
		return
	}
	run := models.SweepRun{
		Agent:        models.AgentPurge,
		StartedAt:    started,
		FinishedAt:   finished,
		TotalChecked: counters.TotalChecked,
		Purged:       counters.Purged,
		Errors:       counters.Errors,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.runs.Create(ctx, &run); err != nil {
		s.logger.Warn("failed to record purge run", zap.Error(err))
	}
}
