package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
)

// ProjectRepository reads purge candidates and cascade-deletes them.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository instantiates a project repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// ListPurgeCandidates returns projects eligible for permanent removal: a
// FAIL final result, archived lifecycle status, an acknowledgement from the
// owner, and an archive date at or before the cutoff.
func (r *ProjectRepository) ListPurgeCandidates(ctx context.Context, cutoff time.Time) ([]models.Project, error) {
	const query = `SELECT id, title, workflow_type, status, exam_type, exam_result, acknowledged_at, archived_at, created_at, updated_at
		FROM projects
		WHERE exam_result = $1 AND status = $2 AND acknowledged_at IS NOT NULL AND archived_at IS NOT NULL AND archived_at <= $3`

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, models.ExamResultFail, models.ProjectStatusArchived, cutoff); err != nil {
		return nil, fmt.Errorf("list purge candidates: %w", err)
	}
	return projects, nil
}

// purgeChildTables lists dependent tables in deletion order. The project row
// and its workflow state go last.
var purgeChildTables = []string{
	"project_members",
	"project_subtracks",
	"project_milestones",
	"project_artifacts",
	"project_meetings",
}

// Purge deletes one project and its dependent tree inside a single
// transaction. A failure rolls back this project only; the caller moves on
// to the next candidate.
func (r *ProjectRepository) Purge(ctx context.Context, projectID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purge tx for %s: %w", projectID, err)
	}

	for _, table := range purgeChildTables {
		query := fmt.Sprintf("DELETE FROM %s WHERE project_id = $1", table)
		if _, err := tx.ExecContext(ctx, query, projectID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("purge %s for %s: %w", table, projectID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM workflow_states WHERE entity_id = $1`, projectID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("purge workflow state for %s: %w", projectID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, projectID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("purge project %s: %w", projectID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purge for %s: %w", projectID, err)
	}
	return nil
}
