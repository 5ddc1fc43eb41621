package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one periodic unit of work. Implementations carry their own
// single-flight guard; the scheduler only fires triggers.
type Job interface {
	Run(ctx context.Context) error
}

type entry struct {
	name         string
	spec         string
	job          Job
	runOnStartup bool
}

// Scheduler wraps a cron engine behind an explicit Start/Stop lifecycle.
// A panicking or failing job is logged and never crashes the trigger
// mechanism.
type Scheduler struct {
	engine  *cron.Cron
	logger  *zap.Logger
	entries []entry

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a scheduler running in the given fixed reference zone.
func New(logger *zap.Logger, location *time.Location) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{
		engine: cron.New(cron.WithLocation(location)),
		logger: logger,
	}
}

// Register adds a named job on the given cron spec. Must be called before
// Start. When runOnStartup is set the job also fires once immediately after
// Start.
func (s *Scheduler) Register(name, spec string, job Job, runOnStartup bool) {
	s.entries = append(s.entries, entry{name: name, spec: spec, job: job, runOnStartup: runOnStartup})
}

// Start wires all registered jobs into the cron engine and begins firing.
// The provided context bounds every triggered run; cancelling it stops new
// work without tearing down the engine (use Stop for that).
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, e := range s.entries {
		e := e
		if _, err := s.engine.AddFunc(e.spec, func() { s.fire(e) }); err != nil {
			return err
		}
		s.logger.Info("job scheduled", zap.String("job", e.name), zap.String("spec", e.spec))
	}

	s.engine.Start()

	for _, e := range s.entries {
		if e.runOnStartup {
			e := e
			go s.fire(e)
		}
	}
	return nil
}

// Stop halts the engine, waits for in-flight runs registered with it, and
// cancels the job context.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	done := s.engine.Stop()
	<-done.Done()
	s.logger.Info("scheduler stopped")
}

// fire runs one trigger. Errors are logged, panics contained; nothing
// escapes into the cron engine.
func (s *Scheduler) fire(e entry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", zap.String("job", e.name), zap.Any("panic", r))
		}
	}()

	if err := s.ctx.Err(); err != nil {
		return
	}

	if err := e.job.Run(s.ctx); err != nil {
		s.logger.Warn("job run ended with error", zap.String("job", e.name), zap.Error(err))
	}
}
