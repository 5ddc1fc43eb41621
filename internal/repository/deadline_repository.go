package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
)

const deadlineColumns = `id, name, workflow_type, field_key, academic_year, term, due_at, window_start, window_end, timezone_offset_mins, allow_late, grace_period_minutes, lock_after_grace, kind, published, publish_at, created_at, updated_at`

// DeadlineRepository provides read access to configured deadlines. The
// reconciliation engine never writes to this table.
type DeadlineRepository struct {
	db *sqlx.DB
}

// NewDeadlineRepository instantiates a deadline repository.
func NewDeadlineRepository(db *sqlx.DB) *DeadlineRepository {
	return &DeadlineRepository{db: db}
}

// ListSoftCrossings returns SUBMISSION deadlines whose single-point due
// instant falls inside the trailing sweep window.
func (r *DeadlineRepository) ListSoftCrossings(ctx context.Context, from, to time.Time) ([]models.Deadline, error) {
	query := fmt.Sprintf(`SELECT %s FROM deadlines WHERE kind = $1 AND due_at IS NOT NULL AND due_at > $2 AND due_at <= $3`, deadlineColumns)

	var deadlines []models.Deadline
	if err := r.db.SelectContext(ctx, &deadlines, query, models.DeadlineKindSubmission, from, to); err != nil {
		return nil, fmt.Errorf("list soft crossings: %w", err)
	}
	return deadlines, nil
}

// ListHardCrossings returns SUBMISSION deadlines whose window end falls
// inside the trailing sweep window.
func (r *DeadlineRepository) ListHardCrossings(ctx context.Context, from, to time.Time) ([]models.Deadline, error) {
	query := fmt.Sprintf(`SELECT %s FROM deadlines WHERE kind = $1 AND window_end IS NOT NULL AND window_end > $2 AND window_end <= $3`, deadlineColumns)

	var deadlines []models.Deadline
	if err := r.db.SelectContext(ctx, &deadlines, query, models.DeadlineKindSubmission, from, to); err != nil {
		return nil, fmt.Errorf("list hard crossings: %w", err)
	}
	return deadlines, nil
}

// ListSubmissionDeadlines returns every SUBMISSION deadline for the given
// workflow types. The flag reconciliation pass uses this as ground truth.
func (r *DeadlineRepository) ListSubmissionDeadlines(ctx context.Context, workflowTypes []models.WorkflowType) ([]models.Deadline, error) {
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM deadlines WHERE kind = ? AND workflow_type IN (?)`, deadlineColumns), models.DeadlineKindSubmission, workflowTypes)
	if err != nil {
		return nil, fmt.Errorf("build submission deadline query: %w", err)
	}
	query = r.db.Rebind(query)

	var deadlines []models.Deadline
	if err := r.db.SelectContext(ctx, &deadlines, query, args...); err != nil {
		return nil, fmt.Errorf("list submission deadlines: %w", err)
	}
	return deadlines, nil
}
