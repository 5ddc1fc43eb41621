package dto

// TriggerSweepRequest selects the agent to run manually.
type TriggerSweepRequest struct {
	Agent string `json:"agent" validate:"required,oneof=reconciliation flag_pass purge"`
}

// TriggerSweepResponse acknowledges a manual trigger.
type TriggerSweepResponse struct {
	Agent   string `json:"agent"`
	Started bool   `json:"started"`
}
