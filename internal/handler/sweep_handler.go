package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Manchinn/cslogbook-reconciler/internal/dto"
	"github.com/Manchinn/cslogbook-reconciler/internal/models"
	appErrors "github.com/Manchinn/cslogbook-reconciler/pkg/errors"
	"github.com/Manchinn/cslogbook-reconciler/pkg/response"
)

// Agent is the operational contract each sweep service exposes upward.
type Agent interface {
	Stats() models.AgentStats
	TriggerNow() error
}

// SweepHandler exposes sweep statistics and manual triggers.
type SweepHandler struct {
	agents   map[string]Agent
	order    []string
	validate *validator.Validate
}

// NewSweepHandler constructs the handler over the given agents.
func NewSweepHandler(reconciliation, flagPass, purge Agent, validate *validator.Validate) *SweepHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &SweepHandler{
		agents: map[string]Agent{
			models.AgentReconciliation: reconciliation,
			models.AgentFlagPass:       flagPass,
			models.AgentPurge:          purge,
		},
		order:    []string{models.AgentReconciliation, models.AgentFlagPass, models.AgentPurge},
		validate: validate,
	}
}

// Stats returns the last-run snapshot of every agent.
func (h *SweepHandler) Stats(c *gin.Context) {
	stats := make([]models.AgentStats, 0, len(h.order))
	for _, name := range h.order {
		if agent := h.agents[name]; agent != nil {
			stats = append(stats, agent.Stats())
		}
	}
	response.JSON(c, http.StatusOK, stats)
}

// Trigger starts one agent manually. Responds 202 when the run started and
// 409 when the single-flight guard rejected it.
func (h *SweepHandler) Trigger(c *gin.Context) {
	var req dto.TriggerSweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	agent, ok := h.agents[req.Agent]
	if !ok || agent == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	if err := agent.TriggerNow(); err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, dto.TriggerSweepResponse{Agent: req.Agent, Started: true})
}
