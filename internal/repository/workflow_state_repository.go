package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
	appErrors "github.com/Manchinn/cslogbook-reconciler/pkg/errors"
)

const workflowStateColumns = `ws.entity_id, ws.workflow_type, ws.current_step_key, ws.overdue_flag, ws.last_transition_at, ws.version, p.status AS entity_status`

// WorkflowStateRepository reads and mutates per-entity workflow state. All
// writes go through a compare-and-swap on the version column so concurrent
// sweeps cannot silently overwrite each other.
type WorkflowStateRepository struct {
	db *sqlx.DB
}

// NewWorkflowStateRepository instantiates a workflow state repository.
func NewWorkflowStateRepository(db *sqlx.DB) *WorkflowStateRepository {
	return &WorkflowStateRepository{db: db}
}

// ListByStepKeys returns states currently sitting in any of the given steps
// whose owning project is not in a terminal lifecycle status.
func (r *WorkflowStateRepository) ListByStepKeys(ctx context.Context, stepKeys []string) ([]models.WorkflowState, error) {
	if len(stepKeys) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM workflow_states ws JOIN projects p ON p.id = ws.entity_id WHERE ws.current_step_key IN (?) AND p.status NOT IN (?)`, workflowStateColumns), stepKeys, models.TerminalProjectStatuses)
	if err != nil {
		return nil, fmt.Errorf("build state query: %w", err)
	}
	query = r.db.Rebind(query)

	var states []models.WorkflowState
	if err := r.db.SelectContext(ctx, &states, query, args...); err != nil {
		return nil, fmt.Errorf("list states by step: %w", err)
	}
	return states, nil
}

// ListActive returns every state whose owning project is not terminal. The
// flag reconciliation pass scans this set in full.
func (r *WorkflowStateRepository) ListActive(ctx context.Context) ([]models.WorkflowState, error) {
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM workflow_states ws JOIN projects p ON p.id = ws.entity_id WHERE p.status NOT IN (?)`, workflowStateColumns), models.TerminalProjectStatuses)
	if err != nil {
		return nil, fmt.Errorf("build active state query: %w", err)
	}
	query = r.db.Rebind(query)

	var states []models.WorkflowState
	if err := r.db.SelectContext(ctx, &states, query, args...); err != nil {
		return nil, fmt.Errorf("list active states: %w", err)
	}
	return states, nil
}

// Transition applies the update to one state row, guarded by the version
// the caller read. Zero affected rows means another agent won the race and
// the caller should count the entity as a per-entity error.
func (r *WorkflowStateRepository) Transition(ctx context.Context, entityID string, version int, upd models.WorkflowStateUpdate) error {
	sets := []string{"last_transition_at = $3", "version = version + 1"}
	args := []interface{}{entityID, version, upd.LastTransitionAt}

	if upd.StepKey != nil {
		sets = append(sets, fmt.Sprintf("current_step_key = $%d", len(args)+1))
		args = append(args, *upd.StepKey)
	}
	if upd.OverdueFlag != nil {
		sets = append(sets, fmt.Sprintf("overdue_flag = $%d", len(args)+1))
		args = append(args, *upd.OverdueFlag)
	}

	query := fmt.Sprintf(`UPDATE workflow_states SET %s WHERE entity_id = $1 AND version = $2`, strings.Join(sets, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transition state %s: %w", entityID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition state %s: rows affected: %w", entityID, err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrVersionConflict, fmt.Sprintf("workflow state %s changed concurrently", entityID))
	}
	return nil
}
