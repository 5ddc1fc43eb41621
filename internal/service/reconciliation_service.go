package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
	appErrors "github.com/Manchinn/cslogbook-reconciler/pkg/errors"
)

type crossingLister interface {
	ListSoftCrossings(ctx context.Context, from, to time.Time) ([]models.Deadline, error)
	ListHardCrossings(ctx context.Context, from, to time.Time) ([]models.Deadline, error)
}

type workflowStateStore interface {
	ListByStepKeys(ctx context.Context, stepKeys []string) ([]models.WorkflowState, error)
	ListActive(ctx context.Context) ([]models.WorkflowState, error)
	Transition(ctx context.Context, entityID string, version int, upd models.WorkflowStateUpdate) error
}

type stepDefinitionResolver interface {
	Resolve(ctx context.Context, workflowType models.WorkflowType, stepKey string) (*models.WorkflowStepDefinition, error)
}

type overdueNotifier interface {
	NotifyOverdue(projectID string, deadline *models.Deadline)
}

type sweepRunStore interface {
	Create(ctx context.Context, run *models.SweepRun) error
}

// ReconciliationServiceConfig tunes the deadline sweeps.
type ReconciliationServiceConfig struct {
	LookbackHours      int
	TimezoneOffsetMins int
	Clock              func() time.Time
}

// ReconciliationService advances workflow entities through the severity
// ladder as deadlines cross. Each run executes the soft sweep (pending →
// late on due instants) and then the hard sweep (pending/late → overdue on
// window ends). Sweeps only move rows currently sitting in the expected
// source step, so re-running over an already-processed window is a no-op.
type ReconciliationService struct {
	deadlines crossingLister
	states    workflowStateStore
	resolver  *MappingResolver
	catalog   stepDefinitionResolver
	notifier  overdueNotifier
	runs      sweepRunStore
	metrics   *MetricsService
	logger    *zap.Logger

	state    *agentState
	lookback time.Duration
	refZone  *time.Location
	now      func() time.Time
}

// NewReconciliationService constructs the agent with injected dependencies.
// notifier and runs may be nil.
func NewReconciliationService(deadlines crossingLister, states workflowStateStore, resolver *MappingResolver, catalog stepDefinitionResolver, notifier overdueNotifier, runs sweepRunStore, metrics *MetricsService, logger *zap.Logger, cfg ReconciliationServiceConfig) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LookbackHours <= 0 {
		cfg.LookbackHours = 24
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &ReconciliationService{
		deadlines: deadlines,
		states:    states,
		resolver:  resolver,
		catalog:   catalog,
		notifier:  notifier,
		runs:      runs,
		metrics:   metrics,
		logger:    logger.With(zap.String("agent", models.AgentReconciliation)),
		state:     newAgentState(models.AgentReconciliation),
		lookback:  time.Duration(cfg.LookbackHours) * time.Hour,
		refZone:   time.FixedZone("ref", cfg.TimezoneOffsetMins*60),
		now:       cfg.Clock,
	}
}

// Stats returns the agent's last-run snapshot.
func (s *ReconciliationService) Stats() models.AgentStats {
	return s.state.Stats()
}

// TriggerNow starts a run on a detached context unless one is already in
// progress.
func (s *ReconciliationService) TriggerNow() error {
	if s.state.running.Load() {
		return appErrors.ErrSweepRunning
	}
	go func() {
		if err := s.Run(context.Background()); err != nil && !errors.Is(err, appErrors.ErrSweepRunning) {
			s.logger.Error("manual sweep failed", zap.Error(err))
		}
	}()
	return nil
}

// Run executes one full sweep. Returns ErrSweepRunning when the
// single-flight guard is held; any other error is a fatal top-level
// failure (per-deadline and per-entity problems are absorbed into the
// error counter instead).
func (s *ReconciliationService) Run(ctx context.Context) error {
	if !s.state.begin() {
		s.logger.Info("sweep trigger skipped, run in progress")
		s.metrics.ObserveSweepSkip(models.AgentReconciliation)
		return appErrors.ErrSweepRunning
	}

	now := s.now().In(s.refZone)
	started := now
	var counters models.RunCounters
	var fatal error

	defer func() {
		finished := s.now().In(s.refZone)
		s.state.finish(finished, counters)
		s.metrics.ObserveSweep(models.AgentReconciliation, finished.Sub(started), counters.StateTransitions, counters.Errors, fatal != nil)
		s.recordRun(started, finished, counters)
	}()

	s.logger.Info("deadline sweep started", zap.Time("window_from", now.Add(-s.lookback)), zap.Time("window_to", now))

	softErr := s.softSweep(ctx, now, &counters)
	hardErr := s.hardSweep(ctx, now, &counters)
	fatal = errors.Join(softErr, hardErr)

	s.logger.Info("deadline sweep finished",
		zap.Int("total_checked", counters.TotalChecked),
		zap.Int("state_transitions", counters.StateTransitions),
		zap.Int("newly_overdue", counters.NewlyOverdue),
		zap.Int("errors", counters.Errors))

	return fatal
}

// softSweep moves entities still pending on a crossed due instant into the
// late step.
func (s *ReconciliationService) softSweep(ctx context.Context, now time.Time, counters *models.RunCounters) error {
	deadlines, err := s.deadlines.ListSoftCrossings(ctx, now.Add(-s.lookback), now)
	if err != nil {
		s.logger.Error("soft sweep aborted, deadline query failed", zap.Error(err))
		return err
	}

	for i := range deadlines {
		d := &deadlines[i]
		triple := s.resolveSteps(ctx, d, counters)
		if triple == nil {
			continue
		}

		states, err := s.states.ListByStepKeys(ctx, []string{triple.PendingStepKey})
		if err != nil {
			s.logger.Error("soft sweep state query failed", zap.String("deadline_id", d.ID), zap.Error(err))
			counters.Errors++
			continue
		}

		for j := range states {
			st := &states[j]
			counters.TotalChecked++

			upd := models.WorkflowStateUpdate{
				StepKey:          &triple.LateStepKey,
				LastTransitionAt: now,
			}
			if err := s.states.Transition(ctx, st.EntityID, st.Version, upd); err != nil {
				s.logger.Warn("soft transition failed", zap.String("entity_id", st.EntityID), zap.String("deadline_id", d.ID), zap.Error(err))
				counters.Errors++
				continue
			}
			counters.StateTransitions++
		}
	}
	return nil
}

// hardSweep moves entities still pending or late on a crossed window end
// into the overdue step, raises the overdue flag and notifies each one.
func (s *ReconciliationService) hardSweep(ctx context.Context, now time.Time, counters *models.RunCounters) error {
	deadlines, err := s.deadlines.ListHardCrossings(ctx, now.Add(-s.lookback), now)
	if err != nil {
		s.logger.Error("hard sweep aborted, deadline query failed", zap.Error(err))
		return err
	}

	for i := range deadlines {
		d := &deadlines[i]
		triple := s.resolveSteps(ctx, d, counters)
		if triple == nil {
			continue
		}

		states, err := s.states.ListByStepKeys(ctx, []string{triple.PendingStepKey, triple.LateStepKey})
		if err != nil {
			s.logger.Error("hard sweep state query failed", zap.String("deadline_id", d.ID), zap.Error(err))
			counters.Errors++
			continue
		}

		overdueFlag := true
		for j := range states {
			st := &states[j]
			counters.TotalChecked++

			upd := models.WorkflowStateUpdate{
				StepKey:          &triple.OverdueStepKey,
				OverdueFlag:      &overdueFlag,
				LastTransitionAt: now,
			}
			if err := s.states.Transition(ctx, st.EntityID, st.Version, upd); err != nil {
				s.logger.Warn("hard transition failed", zap.String("entity_id", st.EntityID), zap.String("deadline_id", d.ID), zap.Error(err))
				counters.Errors++
				continue
			}
			counters.StateTransitions++
			counters.NewlyOverdue++

			if s.notifier != nil {
				s.notifier.NotifyOverdue(st.EntityID, d)
			}
		}
	}
	return nil
}

// resolveSteps maps a deadline to its step triple and verifies the pending
// step exists in the catalog. Configuration gaps are logged and skipped,
// never fatal.
func (s *ReconciliationService) resolveSteps(ctx context.Context, d *models.Deadline, counters *models.RunCounters) *StepTriple {
	triple := s.resolver.Resolve(d.WorkflowType, d.FieldKey)
	if triple == nil {
		s.logger.Warn("no state mapping for deadline, skipping", zap.String("deadline_id", d.ID), zap.String("workflow_type", string(d.WorkflowType)), zap.String("field_key", d.FieldKey))
		return nil
	}

	step, err := s.catalog.Resolve(ctx, d.WorkflowType, triple.PendingStepKey)
	if err != nil {
		s.logger.Error("step catalog lookup failed", zap.String("deadline_id", d.ID), zap.String("step_key", triple.PendingStepKey), zap.Error(err))
		counters.Errors++
		return nil
	}
	if step == nil {
		s.logger.Warn("step definition missing, skipping deadline", zap.String("deadline_id", d.ID), zap.String("step_key", triple.PendingStepKey))
		return nil
	}
	return triple
}

// recordRun writes the audit row. Best-effort: a failed insert is logged
// and otherwise ignored.
func (s *ReconciliationService) recordRun(started, finished time.Time, counters models.RunCounters) {
	if s.runs == nil {
		return
	}
	run := models.SweepRun{
		Agent:            models.AgentReconciliation,
		StartedAt:        started,
		FinishedAt:       finished,
		TotalChecked:     counters.TotalChecked,
		StateTransitions: counters.StateTransitions,
		NewlyOverdue:     counters.NewlyOverdue,
		StillOverdue:     counters.StillOverdue,
		NoLongerOverdue:  counters.NoLongerOverdue,
		Purged:           counters.Purged,
		Errors:           counters.Errors,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.runs.Create(ctx, &run); err != nil {
		s.logger.Warn("failed to record sweep run", zap.Error(err))
	}
}
