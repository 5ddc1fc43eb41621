package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
)

var bangkok = time.FixedZone("ICT", 7*3600)

func ts(value string) time.Time {
	t, err := time.ParseInLocation("2006-01-02T15:04:05", value, bangkok)
	if err != nil {
		panic(err)
	}
	return t
}

func tsp(value string) *time.Time {
	t := ts(value)
	return &t
}

func submissionDeadline(mutate func(*models.Deadline)) *models.Deadline {
	d := &models.Deadline{
		ID:                 "dl-1",
		Name:               "Phase 1 report",
		WorkflowType:       models.WorkflowProjectPhase1,
		FieldKey:           "phase1_report",
		Kind:               models.DeadlineKindSubmission,
		DueAt:              tsp("2025-11-15T23:59:59"),
		AllowLate:          true,
		GracePeriodMinutes: 4320,
	}
	if mutate != nil {
		mutate(d)
	}
	return d
}

func TestComputeDeadlineStatusLadder(t *testing.T) {
	tests := []struct {
		name        string
		deadline    *models.Deadline
		submittedAt *time.Time
		now         time.Time
		want        models.DeadlineStatus
	}{
		{
			name:     "before due date",
			deadline: submissionDeadline(nil),
			now:      ts("2025-11-10T00:00:00"),
			want:     models.StatusUpcoming,
		},
		{
			name:     "just past due",
			deadline: submissionDeadline(nil),
			now:      ts("2025-11-16T00:00:00"),
			want:     models.StatusOverdue,
		},
		{
			name:     "past grace without lock stays overdue",
			deadline: submissionDeadline(nil),
			now:      ts("2025-11-20T00:00:00"),
			want:     models.StatusOverdue,
		},
		{
			name: "inside grace with lock is still overdue",
			deadline: submissionDeadline(func(d *models.Deadline) {
				d.LockAfterGrace = true
			}),
			now:  ts("2025-11-18T23:59:59"),
			want: models.StatusOverdue,
		},
		{
			name: "past grace with lock",
			deadline: submissionDeadline(func(d *models.Deadline) {
				d.LockAfterGrace = true
			}),
			now:  ts("2025-11-19T00:00:01"),
			want: models.StatusLocked,
		},
		{
			name:        "submitted before due",
			deadline:    submissionDeadline(nil),
			submittedAt: tsp("2025-11-14T10:00:00"),
			now:         ts("2025-12-25T00:00:00"),
			want:        models.StatusSubmitted,
		},
		{
			name: "late submission never locks",
			deadline: submissionDeadline(func(d *models.Deadline) {
				d.LockAfterGrace = true
			}),
			submittedAt: tsp("2025-11-16T10:00:00"),
			now:         ts("2025-12-25T00:00:00"),
			want:        models.StatusSubmittedLate,
		},
		{
			name: "announcement kind short-circuits",
			deadline: submissionDeadline(func(d *models.Deadline) {
				d.Kind = models.DeadlineKindAnnouncement
			}),
			now:  ts("2025-11-16T00:00:00"),
			want: models.StatusAnnouncement,
		},
		{
			name: "no due instant at all",
			deadline: submissionDeadline(func(d *models.Deadline) {
				d.DueAt = nil
			}),
			now:  ts("2025-11-16T00:00:00"),
			want: models.StatusUpcoming,
		},
		{
			name: "inside window",
			deadline: submissionDeadline(func(d *models.Deadline) {
				d.DueAt = nil
				d.WindowStart = tsp("2025-11-01T00:00:00")
				d.WindowEnd = tsp("2025-11-15T23:59:59")
			}),
			now:  ts("2025-11-10T12:00:00"),
			want: models.StatusInWindow,
		},
		{
			name: "window end beats due instant",
			deadline: submissionDeadline(func(d *models.Deadline) {
				d.WindowStart = tsp("2025-11-01T00:00:00")
				d.WindowEnd = tsp("2025-11-20T23:59:59")
			}),
			now:  ts("2025-11-16T00:00:00"),
			want: models.StatusInWindow,
		},
		{
			name: "non-submission kind ignores lock and grace",
			deadline: submissionDeadline(func(d *models.Deadline) {
				d.Kind = models.DeadlineKindMilestone
				d.LockAfterGrace = true
			}),
			now:  ts("2025-11-20T00:00:00"),
			want: models.StatusOverdue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDeadlineStatus(tt.deadline, tt.submittedAt, tt.now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusImpliesOverdue(t *testing.T) {
	assert.True(t, StatusImpliesOverdue(models.StatusOverdue))
	assert.True(t, StatusImpliesOverdue(models.StatusLocked))
	assert.False(t, StatusImpliesOverdue(models.StatusUpcoming))
	assert.False(t, StatusImpliesOverdue(models.StatusSubmittedLate))
	assert.False(t, StatusImpliesOverdue(models.StatusSubmitted))
}
