package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
)

const stepColumns = `id, workflow_type, phase_key, variant, step_key, sort_order`

// StepRepository reads the static workflow step catalog.
type StepRepository struct {
	db *sqlx.DB
}

// NewStepRepository instantiates a step repository.
func NewStepRepository(db *sqlx.DB) *StepRepository {
	return &StepRepository{db: db}
}

// FindByKey loads one catalog row. Returns nil without error when the key
// is unknown so callers can skip-and-log per the configuration-gap policy.
func (r *StepRepository) FindByKey(ctx context.Context, workflowType models.WorkflowType, stepKey string) (*models.WorkflowStepDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflow_steps WHERE workflow_type = $1 AND step_key = $2`, stepColumns)

	var step models.WorkflowStepDefinition
	if err := r.db.GetContext(ctx, &step, query, workflowType, stepKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find step %s/%s: %w", workflowType, stepKey, err)
	}
	return &step, nil
}

// ListByType returns the full catalog for one workflow type ordered by
// sort order.
func (r *StepRepository) ListByType(ctx context.Context, workflowType models.WorkflowType) ([]models.WorkflowStepDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflow_steps WHERE workflow_type = $1 ORDER BY sort_order ASC`, stepColumns)

	var steps []models.WorkflowStepDefinition
	if err := r.db.SelectContext(ctx, &steps, query, workflowType); err != nil {
		return nil, fmt.Errorf("list steps for %s: %w", workflowType, err)
	}
	return steps, nil
}
