package models

import "time"

// Agent names used in run records, metrics labels and log fields.
const (
	AgentReconciliation = "reconciliation"
	AgentFlagPass       = "flag_pass"
	AgentPurge          = "purge"
)

// RunCounters accumulates per-run sweep statistics. Reset at the start of
// each run, retained read-only afterwards for status reporting.
type RunCounters struct {
	TotalChecked     int `json:"total_checked"`
	StateTransitions int `json:"state_transitions"`
	NewlyOverdue     int `json:"newly_overdue"`
	StillOverdue     int `json:"still_overdue"`
	NoLongerOverdue  int `json:"no_longer_overdue"`
	Purged           int `json:"purged"`
	Errors           int `json:"errors"`
}

// AgentStats is the snapshot an agent exposes upward.
type AgentStats struct {
	Agent     string      `json:"agent"`
	IsRunning bool        `json:"is_running"`
	LastRunAt *time.Time  `json:"last_run_at,omitempty"`
	LastRun   RunCounters `json:"last_run"`
}

// SweepRun is the persisted audit record of one completed agent run.
// Written best-effort; a failed insert never fails the run itself.
type SweepRun struct {
	ID               string    `db:"id" json:"id"`
	Agent            string    `db:"agent" json:"agent"`
	StartedAt        time.Time `db:"started_at" json:"started_at"`
	FinishedAt       time.Time `db:"finished_at" json:"finished_at"`
	TotalChecked     int       `db:"total_checked" json:"total_checked"`
	StateTransitions int       `db:"state_transitions" json:"state_transitions"`
	NewlyOverdue     int       `db:"newly_overdue" json:"newly_overdue"`
	StillOverdue     int       `db:"still_overdue" json:"still_overdue"`
	NoLongerOverdue  int       `db:"no_longer_overdue" json:"no_longer_overdue"`
	Purged           int       `db:"purged" json:"purged"`
	Errors           int       `db:"errors" json:"errors"`
}
