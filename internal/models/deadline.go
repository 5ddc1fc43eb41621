package models

import "time"

// WorkflowType identifies which workflow track a deadline governs.
type WorkflowType string

const (
	WorkflowProjectPhase1 WorkflowType = "PROJECT_PHASE_1"
	WorkflowProjectPhase2 WorkflowType = "PROJECT_PHASE_2"
	WorkflowInternship    WorkflowType = "INTERNSHIP"
	WorkflowGeneral       WorkflowType = "GENERAL"
)

// DeadlineKind distinguishes entries on the academic calendar. Only
// SUBMISSION deadlines participate in the reconciliation sweeps.
type DeadlineKind string

const (
	DeadlineKindSubmission   DeadlineKind = "SUBMISSION"
	DeadlineKindAnnouncement DeadlineKind = "ANNOUNCEMENT"
	DeadlineKindManual       DeadlineKind = "MANUAL"
	DeadlineKindMilestone    DeadlineKind = "MILESTONE"
)

// Deadline models a configured time boundary, either a single due instant or
// a submission window. Rows are owned by the deadline administration UI and
// are read-only from the reconciliation engine's side.
type Deadline struct {
	ID                 string       `db:"id" json:"id"`
	Name               string       `db:"name" json:"name"`
	WorkflowType       WorkflowType `db:"workflow_type" json:"workflow_type"`
	FieldKey           string       `db:"field_key" json:"field_key"`
	AcademicYear       string       `db:"academic_year" json:"academic_year"`
	Term               string       `db:"term" json:"term"`
	DueAt              *time.Time   `db:"due_at" json:"due_at,omitempty"`
	WindowStart        *time.Time   `db:"window_start" json:"window_start,omitempty"`
	WindowEnd          *time.Time   `db:"window_end" json:"window_end,omitempty"`
	TimezoneOffsetMins int          `db:"timezone_offset_mins" json:"timezone_offset_mins"`
	AllowLate          bool         `db:"allow_late" json:"allow_late"`
	GracePeriodMinutes int          `db:"grace_period_minutes" json:"grace_period_minutes"`
	LockAfterGrace     bool         `db:"lock_after_grace" json:"lock_after_grace"`
	Kind               DeadlineKind `db:"kind" json:"kind"`
	Published          bool         `db:"published" json:"published"`
	PublishAt          *time.Time   `db:"publish_at" json:"publish_at,omitempty"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
}

// EffectiveDue returns the instant the deadline is measured against:
// windowEnd when the window form is used, otherwise dueAt. Nil when the row
// carries neither form.
func (d *Deadline) EffectiveDue() *time.Time {
	if d.WindowEnd != nil {
		return d.WindowEnd
	}
	return d.DueAt
}

// Submission records that a project acted on a deadline. Read-only input to
// the status calculus.
type Submission struct {
	ID          string    `db:"id" json:"id"`
	DeadlineID  string    `db:"deadline_id" json:"deadline_id"`
	ProjectID   string    `db:"project_id" json:"project_id"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// DeadlineStatus is the seven-valued outcome of the status calculus.
type DeadlineStatus string

const (
	StatusAnnouncement  DeadlineStatus = "announcement"
	StatusUpcoming      DeadlineStatus = "upcoming"
	StatusInWindow      DeadlineStatus = "in_window"
	StatusOverdue       DeadlineStatus = "overdue"
	StatusLocked        DeadlineStatus = "locked"
	StatusSubmitted     DeadlineStatus = "submitted"
	StatusSubmittedLate DeadlineStatus = "submitted_late"
)
