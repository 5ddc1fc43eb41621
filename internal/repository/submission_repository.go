package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SubmissionRepository reads submission records for the status calculus.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository instantiates a submission repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// MapByProject returns deadlineID → submittedAt for one project. A missing
// key means the project never acted on that deadline.
func (r *SubmissionRepository) MapByProject(ctx context.Context, projectID string) (map[string]time.Time, error) {
	const query = `SELECT deadline_id, submitted_at FROM deadline_submissions WHERE project_id = $1`

	rows, err := r.db.QueryxContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list submissions for project %s: %w", projectID, err)
	}
	defer rows.Close()

	result := make(map[string]time.Time)
	for rows.Next() {
		var deadlineID string
		var submittedAt time.Time
		if err := rows.Scan(&deadlineID, &submittedAt); err != nil {
			return nil, fmt.Errorf("scan submission row: %w", err)
		}
		result[deadlineID] = submittedAt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return result, nil
}
