package models

import "time"

// ProjectStatus is the lifecycle status of an owning workflow entity.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusCancelled ProjectStatus = "CANCELLED"
	ProjectStatusArchived  ProjectStatus = "ARCHIVED"
)

// TerminalProjectStatuses lists lifecycle statuses excluded from sweep
// mutation. Entities in these states are frozen.
var TerminalProjectStatuses = []ProjectStatus{
	ProjectStatusCompleted,
	ProjectStatusCancelled,
	ProjectStatusArchived,
}

// ExamType identifies which examination a result row belongs to.
type ExamType string

const (
	ExamTypePhase1 ExamType = "PHASE1"
	ExamTypeFinal  ExamType = "FINAL"
)

// ExamResult is the closed outcome set of an examination.
type ExamResult string

const (
	ExamResultPass ExamResult = "PASS"
	ExamResultFail ExamResult = "FAIL"
)

// Project is the owning workflow entity (a senior project or internship
// record). Only the columns the reconciliation and purge agents touch are
// modeled here.
type Project struct {
	ID             string        `db:"id" json:"id"`
	Title          string        `db:"title" json:"title"`
	WorkflowType   WorkflowType  `db:"workflow_type" json:"workflow_type"`
	Status         ProjectStatus `db:"status" json:"status"`
	ExamType       *ExamType     `db:"exam_type" json:"exam_type,omitempty"`
	ExamResult     *ExamResult   `db:"exam_result" json:"exam_result,omitempty"`
	AcknowledgedAt *time.Time    `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	ArchivedAt     *time.Time    `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// PurgeEligible reports whether the project satisfies every retention
// criterion at the given cutoff: a FAIL final result, archived lifecycle
// status, an acknowledgement from the owner, and an archive date at or
// before the cutoff.
func (p *Project) PurgeEligible(cutoff time.Time) bool {
	if p.ExamResult == nil || *p.ExamResult != ExamResultFail {
		return false
	}
	if p.Status != ProjectStatusArchived {
		return false
	}
	if p.AcknowledgedAt == nil {
		return false
	}
	if p.ArchivedAt == nil || p.ArchivedAt.After(cutoff) {
		return false
	}
	return true
}
