package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
	appErrors "github.com/Manchinn/cslogbook-reconciler/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func stateRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"entity_id", "workflow_type", "current_step_key", "overdue_flag", "last_transition_at", "version", "entity_status"})
}

func TestWorkflowStateListByStepKeys(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWorkflowStateRepository(db)
	rows := stateRows().
		AddRow("proj-1", "PROJECT_PHASE_1", "p1_report_pending", false, nil, 1, "ACTIVE")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ws.entity_id, ws.workflow_type, ws.current_step_key")).
		WillReturnRows(rows)

	states, err := repo.ListByStepKeys(context.Background(), []string{"p1_report_pending"})
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "proj-1", states[0].EntityID)
	assert.Equal(t, models.ProjectStatusActive, states[0].EntityStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowStateListByStepKeysEmptyInput(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWorkflowStateRepository(db)
	states, err := repo.ListByStepKeys(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, states)
}

func TestWorkflowStateTransition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWorkflowStateRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE workflow_states SET")).
		WithArgs("proj-1", 3, sqlmock.AnyArg(), "p1_report_late").
		WillReturnResult(sqlmock.NewResult(0, 1))

	stepKey := "p1_report_late"
	err := repo.Transition(context.Background(), "proj-1", 3, models.WorkflowStateUpdate{
		StepKey:          &stepKey,
		LastTransitionAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkflowStateTransitionVersionConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWorkflowStateRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE workflow_states SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	flag := true
	err := repo.Transition(context.Background(), "proj-1", 1, models.WorkflowStateUpdate{
		OverdueFlag:      &flag,
		LastTransitionAt: time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrVersionConflict.Code, appErrors.FromError(err).Code)
}
