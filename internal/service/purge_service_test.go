package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
	appErrors "github.com/Manchinn/cslogbook-reconciler/pkg/errors"
)

type purgeStoreStub struct {
	projects []models.Project
	failFor  map[string]error
	purged   []string
	listErr  error
}

func (s *purgeStoreStub) ListPurgeCandidates(ctx context.Context, cutoff time.Time) ([]models.Project, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var result []models.Project
	for _, p := range s.projects {
		if p.PurgeEligible(cutoff) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *purgeStoreStub) Purge(ctx context.Context, projectID string) error {
	if err := s.failFor[projectID]; err != nil {
		return err
	}
	s.purged = append(s.purged, projectID)
	return nil
}

func failedProject(id string, archivedAt time.Time, acknowledged bool) models.Project {
	result := models.ExamResultFail
	examType := models.ExamTypeFinal
	p := models.Project{
		ID:           id,
		WorkflowType: models.WorkflowProjectPhase2,
		Status:       models.ProjectStatusArchived,
		ExamType:     &examType,
		ExamResult:   &result,
		ArchivedAt:   &archivedAt,
	}
	if acknowledged {
		ack := archivedAt
		p.AcknowledgedAt = &ack
	}
	return p
}

func newPurgeFixture(store *purgeStoreStub, now time.Time) *PurgeService {
	return NewPurgeService(store, &runStoreStub{}, nil, nil, PurgeServiceConfig{
		RetentionDays: 7,
		Clock:         fixedClock(now),
	})
}

func TestPurgeRespectsRetentionWindow(t *testing.T) {
	now := ts("2025-12-01T00:00:00")
	store := &purgeStoreStub{projects: []models.Project{
		failedProject("proj-a", now.AddDate(0, 0, -8), true),
		failedProject("proj-b", now.AddDate(0, 0, -3), true),
		failedProject("proj-c", now.AddDate(0, 0, -30), false),
	}}
	svc := newPurgeFixture(store, now)

	require.NoError(t, svc.Run(context.Background()))

	assert.Equal(t, []string{"proj-a"}, store.purged)
	stats := svc.Stats()
	assert.Equal(t, 1, stats.LastRun.Purged)
	assert.Equal(t, 1, stats.LastRun.TotalChecked)
}

func TestPurgeSkipsPassedProjects(t *testing.T) {
	now := ts("2025-12-01T00:00:00")
	passed := failedProject("proj-d", now.AddDate(0, 0, -30), true)
	pass := models.ExamResultPass
	passed.ExamResult = &pass

	store := &purgeStoreStub{projects: []models.Project{passed}}
	svc := newPurgeFixture(store, now)

	require.NoError(t, svc.Run(context.Background()))
	assert.Empty(t, store.purged)
}

func TestPurgeIsolatesCandidateFailures(t *testing.T) {
	now := ts("2025-12-01T00:00:00")
	store := &purgeStoreStub{
		projects: []models.Project{
			failedProject("proj-a", now.AddDate(0, 0, -10), true),
			failedProject("proj-b", now.AddDate(0, 0, -10), true),
			failedProject("proj-c", now.AddDate(0, 0, -10), true),
		},
		failFor: map[string]error{"proj-b": errors.New("fk violation")},
	}
	svc := newPurgeFixture(store, now)

	require.NoError(t, svc.Run(context.Background()))

	assert.Equal(t, []string{"proj-a", "proj-c"}, store.purged)
	stats := svc.Stats()
	assert.Equal(t, 2, stats.LastRun.Purged)
	assert.Equal(t, 1, stats.LastRun.Errors)
}

func TestPurgeSingleFlight(t *testing.T) {
	now := ts("2025-12-01T00:00:00")
	svc := newPurgeFixture(&purgeStoreStub{}, now)

	svc.state.running.Store(true)
	require.ErrorIs(t, svc.Run(context.Background()), appErrors.ErrSweepRunning)
}

func TestPurgeFatalListFailure(t *testing.T) {
	now := ts("2025-12-01T00:00:00")
	store := &purgeStoreStub{listErr: errors.New("db unreachable")}
	svc := newPurgeFixture(store, now)

	require.Error(t, svc.Run(context.Background()))
	assert.False(t, svc.Stats().IsRunning)
}

func TestPurgeEligibility(t *testing.T) {
	now := ts("2025-12-01T00:00:00")
	cutoff := now.AddDate(0, 0, -7)

	eligible := failedProject("p", now.AddDate(0, 0, -8), true)
	assert.True(t, eligible.PurgeEligible(cutoff))

	young := failedProject("p", now.AddDate(0, 0, -3), true)
	assert.False(t, young.PurgeEligible(cutoff))

	unacknowledged := failedProject("p", now.AddDate(0, 0, -30), false)
	assert.False(t, unacknowledged.PurgeEligible(cutoff))

	active := failedProject("p", now.AddDate(0, 0, -8), true)
	active.Status = models.ProjectStatusActive
	assert.False(t, active.PurgeEligible(cutoff))
}
