package models

import "time"

// StepVariant tags a workflow step with its severity.
type StepVariant string

const (
	StepVariantDefault StepVariant = "default"
	StepVariantLate    StepVariant = "late"
	StepVariantOverdue StepVariant = "overdue"
)

// WorkflowStepDefinition is one row of the static step catalog, seeded once
// per deployment and immutable at runtime.
type WorkflowStepDefinition struct {
	ID           string       `db:"id" json:"id"`
	WorkflowType WorkflowType `db:"workflow_type" json:"workflow_type"`
	PhaseKey     string       `db:"phase_key" json:"phase_key"`
	Variant      StepVariant  `db:"variant" json:"variant"`
	StepKey      string       `db:"step_key" json:"step_key"`
	SortOrder    int          `db:"sort_order" json:"sort_order"`
}

// WorkflowState holds the current step of one workflow entity plus the
// denormalized overdue flag the UI reads. The version column backs the
// compare-and-swap update used by both sweep agents.
type WorkflowState struct {
	EntityID         string        `db:"entity_id" json:"entity_id"`
	WorkflowType     WorkflowType  `db:"workflow_type" json:"workflow_type"`
	CurrentStepKey   string        `db:"current_step_key" json:"current_step_key"`
	OverdueFlag      bool          `db:"overdue_flag" json:"overdue_flag"`
	LastTransitionAt *time.Time    `db:"last_transition_at" json:"last_transition_at,omitempty"`
	Version          int           `db:"version" json:"version"`
	EntityStatus     ProjectStatus `db:"entity_status" json:"entity_status"`
}

// WorkflowStateUpdate carries the fields a sweep may change on one state
// row. Nil pointers leave the stored value untouched.
type WorkflowStateUpdate struct {
	StepKey          *string
	OverdueFlag      *bool
	LastTransitionAt time.Time
}
