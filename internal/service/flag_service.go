package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
	appErrors "github.com/Manchinn/cslogbook-reconciler/pkg/errors"
)

type submissionDeadlineLister interface {
	ListSubmissionDeadlines(ctx context.Context, workflowTypes []models.WorkflowType) ([]models.Deadline, error)
}

type submissionLookup interface {
	MapByProject(ctx context.Context, projectID string) (map[string]time.Time, error)
}

// FlagServiceConfig tunes the flag reconciliation pass.
type FlagServiceConfig struct {
	TimezoneOffsetMins int
	Clock              func() time.Time
}

// FlagService is the self-healing pass: it rederives the overdue flag for
// every active entity from the status calculus, independent of step
// transitions. It catches entities the narrow step-matching sweeps missed,
// such as ones created after their crossing window had already closed.
type FlagService struct {
	deadlines   submissionDeadlineLister
	submissions submissionLookup
	states      workflowStateStore
	runs        sweepRunStore
	metrics     *MetricsService
	logger      *zap.Logger

	state   *agentState
	refZone *time.Location
	now     func() time.Time
}

// NewFlagService constructs the pass with injected dependencies. runs may
// be nil.
func NewFlagService(deadlines submissionDeadlineLister, submissions submissionLookup, states workflowStateStore, runs sweepRunStore, metrics *MetricsService, logger *zap.Logger, cfg FlagServiceConfig) *FlagService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &FlagService{
		deadlines:   deadlines,
		submissions: submissions,
		states:      states,
		runs:        runs,
		metrics:     metrics,
		logger:      logger.With(zap.String("agent", models.AgentFlagPass)),
		state:       newAgentState(models.AgentFlagPass),
		refZone:     time.FixedZone("ref", cfg.TimezoneOffsetMins*60),
		now:         cfg.Clock,
	}
}

// Stats returns the agent's last-run snapshot.
func (s *FlagService) Stats() models.AgentStats {
	return s.state.Stats()
}

// TriggerNow starts a run on a detached context unless one is already in
// progress.
func (s *FlagService) TriggerNow() error {
	if s.state.running.Load() {
		return appErrors.ErrSweepRunning
	}
	go func() {
		if err := s.Run(context.Background()); err != nil {
			s.logger.Error("manual flag pass failed", zap.Error(err))
		}
	}()
	return nil
}

// Run executes one full scan. Per-entity failures are isolated; only a
// failed state or deadline listing is fatal.
func (s *FlagService) Run(ctx context.Context) error {
	if !s.state.begin() {
		s.logger.Info("flag pass trigger skipped, run in progress")
		s.metrics.ObserveSweepSkip(models.AgentFlagPass)
		return appErrors.ErrSweepRunning
	}

	now := s.now().In(s.refZone)
	started := now
	var counters models.RunCounters
	var fatal error

	defer func() {
		finished := s.now().In(s.refZone)
		s.state.finish(finished, counters)
		s.metrics.ObserveSweep(models.AgentFlagPass, finished.Sub(started), counters.StateTransitions, counters.Errors, fatal != nil)
		s.recordRun(started, finished, counters)
	}()

	states, err := s.states.ListActive(ctx)
	if err != nil {
		s.logger.Error("flag pass aborted, state listing failed", zap.Error(err))
		fatal = err
		return err
	}

	deadlinesByType, err := s.loadDeadlines(ctx, states)
	if err != nil {
		s.logger.Error("flag pass aborted, deadline listing failed", zap.Error(err))
		fatal = err
		return err
	}

	for i := range states {
		st := &states[i]
		counters.TotalChecked++
		if err := s.reconcileEntity(ctx, st, deadlinesByType[st.WorkflowType], now, &counters); err != nil {
			s.logger.Warn("flag reconciliation failed for entity", zap.String("entity_id", st.EntityID), zap.Error(err))
			counters.Errors++
		}
	}

	s.logger.Info("flag pass finished",
		zap.Int("total_checked", counters.TotalChecked),
		zap.Int("newly_overdue", counters.NewlyOverdue),
		zap.Int("still_overdue", counters.StillOverdue),
		zap.Int("no_longer_overdue", counters.NoLongerOverdue),
		zap.Int("errors", counters.Errors))

	return nil
}

// loadDeadlines fetches every SUBMISSION deadline for the workflow types
// present in the scan, grouped by type.
func (s *FlagService) loadDeadlines(ctx context.Context, states []models.WorkflowState) (map[models.WorkflowType][]models.Deadline, error) {
	seen := make(map[models.WorkflowType]struct{})
	var types []models.WorkflowType
	for i := range states {
		if _, ok := seen[states[i].WorkflowType]; ok {
			continue
		}
		seen[states[i].WorkflowType] = struct{}{}
		types = append(types, states[i].WorkflowType)
	}
	if len(types) == 0 {
		return map[models.WorkflowType][]models.Deadline{}, nil
	}

	deadlines, err := s.deadlines.ListSubmissionDeadlines(ctx, types)
	if err != nil {
		return nil, err
	}

	grouped := make(map[models.WorkflowType][]models.Deadline, len(types))
	for i := range deadlines {
		grouped[deadlines[i].WorkflowType] = append(grouped[deadlines[i].WorkflowType], deadlines[i])
	}
	return grouped, nil
}

// reconcileEntity recomputes one entity's overdue flag and writes it only
// when it differs from the stored value.
func (s *FlagService) reconcileEntity(ctx context.Context, st *models.WorkflowState, deadlines []models.Deadline, now time.Time, counters *models.RunCounters) error {
	submissions, err := s.submissions.MapByProject(ctx, st.EntityID)
	if err != nil {
		return err
	}

	overdue := false
	for i := range deadlines {
		d := &deadlines[i]
		var submittedAt *time.Time
		if at, ok := submissions[d.ID]; ok {
			submittedAt = &at
		}
		if StatusImpliesOverdue(ComputeDeadlineStatus(d, submittedAt, now)) {
			overdue = true
			break
		}
	}

	if overdue == st.OverdueFlag {
		if overdue {
			counters.StillOverdue++
		}
		return nil
	}

	upd := models.WorkflowStateUpdate{
		OverdueFlag:      &overdue,
		LastTransitionAt: now,
	}
	if err := s.states.Transition(ctx, st.EntityID, st.Version, upd); err != nil {
		return err
	}
	counters.StateTransitions++
	if overdue {
		counters.NewlyOverdue++
	} else {
		counters.NoLongerOverdue++
	}
	return nil
}

func (s *FlagService) recordRun(started, finished time.Time, counters models.RunCounters) {
	if s.runs == nil {
		return
	}
	run := models.SweepRun{
		Agent:            models.AgentFlagPass,
		StartedAt:        started,
		FinishedAt:       finished,
		TotalChecked:     counters.TotalChecked,
		StateTransitions: counters.StateTransitions,
		NewlyOverdue:     counters.NewlyOverdue,
		StillOverdue:     counters.StillOverdue,
		NoLongerOverdue:  counters.NoLongerOverdue,
		Errors:           counters.Errors,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.runs.Create(ctx, &run); err != nil {
		s.logger.Warn("failed to record flag pass run", zap.Error(err))
	}
}
