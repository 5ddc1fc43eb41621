package service

import (
	"strings"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
)

// StepTriple names the workflow steps a deadline drives entities through.
type StepTriple struct {
	PendingStepKey string
	LateStepKey    string
	OverdueStepKey string
}

type mappingRow struct {
	WorkflowType models.WorkflowType
	FieldKey     string
	Steps        StepTriple
}

// deadlineStateMappings binds each deadline field to its step triple per
// workflow type. Versioned with the code; the catalog seed must carry a row
// for every step key named here.
var deadlineStateMappings = []mappingRow{
	{
		WorkflowType: models.WorkflowProjectPhase1,
		FieldKey:     "proposal_submission",
		Steps: StepTriple{
			PendingStepKey: "p1_proposal_pending",
			LateStepKey:    "p1_proposal_late",
			OverdueStepKey: "p1_proposal_overdue",
		},
	},
	{
		WorkflowType: models.WorkflowProjectPhase1,
		FieldKey:     "phase1_report",
		Steps: StepTriple{
			PendingStepKey: "p1_report_pending",
			LateStepKey:    "p1_report_late",
			OverdueStepKey: "p1_report_overdue",
		},
	},
	{
		WorkflowType: models.WorkflowProjectPhase2,
		FieldKey:     "phase2_report",
		Steps: StepTriple{
			PendingStepKey: "p2_report_pending",
			LateStepKey:    "p2_report_late",
			OverdueStepKey: "p2_report_overdue",
		},
	},
	{
		WorkflowType: models.WorkflowProjectPhase2,
		FieldKey:     "final_submission",
		Steps: StepTriple{
			PendingStepKey: "p2_final_pending",
			LateStepKey:    "p2_final_late",
			OverdueStepKey: "p2_final_overdue",
		},
	},
	{
		WorkflowType: models.WorkflowInternship,
		FieldKey:     "internship_request",
		Steps: StepTriple{
			PendingStepKey: "intern_request_pending",
			LateStepKey:    "intern_request_late",
			OverdueStepKey: "intern_request_overdue",
		},
	},
	{
		WorkflowType: models.WorkflowInternship,
		FieldKey:     "internship_report",
		Steps: StepTriple{
			PendingStepKey: "intern_report_pending",
			LateStepKey:    "intern_report_late",
			OverdueStepKey: "intern_report_overdue",
		},
	},
}

// MappingResolver resolves a deadline's logical field name to the step
// triple configured for its workflow type.
type MappingResolver struct {
	rows []mappingRow
}

// NewMappingResolver builds a resolver over the built-in mapping table.
func NewMappingResolver() *MappingResolver {
	return &MappingResolver{rows: deadlineStateMappings}
}

// Resolve returns the step triple for the deadline's field, or nil when no
// mapping exists. Matching is substring in either direction so field keys
// carrying year or term suffixes still resolve; callers must treat nil as
// skip-and-log, never as a failure.
func (r *MappingResolver) Resolve(workflowType models.WorkflowType, fieldKey string) *StepTriple {
	if fieldKey == "" {
		return nil
	}
	for i := range r.rows {
		row := &r.rows[i]
		if row.WorkflowType != workflowType {
			continue
		}
		if strings.Contains(fieldKey, row.FieldKey) || strings.Contains(row.FieldKey, fieldKey) {
			steps := row.Steps
			return &steps
		}
	}
	return nil
}
