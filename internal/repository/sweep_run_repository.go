package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
)

// SweepRunRepository records completed agent runs for auditing.
type SweepRunRepository struct {
	db *sqlx.DB
}

// NewSweepRunRepository instantiates a sweep run repository.
func NewSweepRunRepository(db *sqlx.DB) *SweepRunRepository {
	return &SweepRunRepository{db: db}
}

// Create inserts one run record, assigning an ID when absent.
func (r *SweepRunRepository) Create(ctx context.Context, run *models.SweepRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	const query = `INSERT INTO sweep_runs (id, agent, started_at, finished_at, total_checked, state_transitions, newly_overdue, still_overdue, no_longer_overdue, purged, errors)
		VALUES (:id, :agent, :started_at, :finished_at, :total_checked, :state_transitions, :newly_overdue, :still_overdue, :no_longer_overdue, :purged, :errors)`

	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create sweep run: %w", err)
	}
	return nil
}
