package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
)

func deadlineRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "workflow_type", "field_key", "academic_year", "term", "due_at", "window_start", "window_end", "timezone_offset_mins", "allow_late", "grace_period_minutes", "lock_after_grace", "kind", "published", "publish_at", "created_at", "updated_at"})
}

func TestDeadlineListSoftCrossings(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeadlineRepository(db)
	now := time.Now()
	rows := deadlineRows().
		AddRow("dl-1", "Phase 1 report", "PROJECT_PHASE_1", "phase1_report", "2568", "1", now.Add(-time.Hour), nil, nil, 420, true, 4320, false, "SUBMISSION", true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, workflow_type")).
		WithArgs(string(models.DeadlineKindSubmission), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	deadlines, err := repo.ListSoftCrossings(context.Background(), now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, deadlines, 1)
	assert.Equal(t, "dl-1", deadlines[0].ID)
	assert.Equal(t, models.WorkflowProjectPhase1, deadlines[0].WorkflowType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadlineListHardCrossings(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeadlineRepository(db)
	now := time.Now()
	rows := deadlineRows().
		AddRow("dl-2", "Final submission", "PROJECT_PHASE_2", "final_submission", "2568", "2", nil, now.Add(-48*time.Hour), now.Add(-time.Hour), 420, false, 0, true, "SUBMISSION", true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("window_end IS NOT NULL")).
		WithArgs(string(models.DeadlineKindSubmission), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	deadlines, err := repo.ListHardCrossings(context.Background(), now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, deadlines, 1)
	require.NotNil(t, deadlines[0].WindowEnd)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadlineListSubmissionDeadlines(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDeadlineRepository(db)
	now := time.Now()
	rows := deadlineRows().
		AddRow("dl-3", "Internship report", "INTERNSHIP", "internship_report", "2568", "1", now, nil, nil, 420, true, 1440, false, "SUBMISSION", true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("workflow_type IN")).
		WillReturnRows(rows)

	deadlines, err := repo.ListSubmissionDeadlines(context.Background(), []models.WorkflowType{models.WorkflowInternship})
	require.NoError(t, err)
	require.Len(t, deadlines, 1)
	assert.Equal(t, "internship_report", deadlines[0].FieldKey)
}
