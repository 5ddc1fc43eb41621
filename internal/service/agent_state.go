package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
)

// agentState owns one agent's single-flight guard and its last-run
// statistics. The guard is strictly intra-agent: two different agents may
// still run concurrently, which is why state writes go through the version
// column.
type agentState struct {
	agent   string
	running atomic.Bool

	mu        sync.RWMutex
	lastRunAt *time.Time
	lastRun   models.RunCounters
}

func newAgentState(agent string) *agentState {
	return &agentState{agent: agent}
}

// begin attempts to acquire the guard. A false return means a run is
// already in progress and the caller must back off without touching any
// data.
func (a *agentState) begin() bool {
	return a.running.CompareAndSwap(false, true)
}

// finish publishes the run's counters and releases the guard. Called on
// every exit path, including fatal failures, so partial counters stay
// observable.
func (a *agentState) finish(at time.Time, counters models.RunCounters) {
	a.mu.Lock()
	a.lastRunAt = &at
	a.lastRun = counters
	a.mu.Unlock()
	a.running.Store(false)
}

// Stats returns a point-in-time snapshot.
func (a *agentState) Stats() models.AgentStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := models.AgentStats{
		Agent:     a.agent,
		IsRunning: a.running.Load(),
		LastRun:   a.lastRun,
	}
	if a.lastRunAt != nil {
		at := *a.lastRunAt
		stats.LastRunAt = &at
	}
	return stats
}
