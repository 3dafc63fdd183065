package agent

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/obscura-io/obscura/logger"
)

// Stats tracks per-agent usage counters.
type Stats struct {
	TasksProcessed int
	TasksFailed    int
	TotalExecution time.Duration
	LastUsed       time.Time
}

// Registered pairs an agent with its registry-assigned instance ID.
type Registered struct {
	ID    string
	Agent Agent
}

// Registry maps capabilities to agents. Lookup preserves registration order
// so the orchestrator's "first healthy agent" choice is deterministic.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	agents map[string]Agent
	stats  map[string]*Stats
	log    *zap.SugaredLogger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		agents: make(map[string]Agent),
		stats:  make(map[string]*Stats),
		log:    log.Named("registry"),
	}
}

// Register adds an agent and returns its instance ID. Stats start zeroed.
func (r *Registry) Register(a Agent) string {
	id := fmt.Sprintf("%s_%s", a.Name(), shortID())

	r.mu.Lock()
	r.order = append(r.order, id)
	r.agents[id] = a
	r.stats[id] = &Stats{}
	r.mu.Unlock()

	r.log.Infow("Agent registered",
		logger.FieldAgentID, id,
		logger.FieldCapability, a.Capabilities(),
	)
	return id
}

// Get returns the agent with the given instance ID.
func (r *Registry) Get(id string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// ByCapability returns the healthy agents declaring the capability, in
// registration order. Unhealthy agents are skipped but stay registered; they
// reappear once healthy again.
func (r *Registry) ByCapability(capability string) []Registered {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Registered
	for _, id := range r.order {
		a := r.agents[id]
		if !a.Healthy() {
			continue
		}
		for _, c := range a.Capabilities() {
			if c == capability {
				out = append(out, Registered{ID: id, Agent: a})
				break
			}
		}
	}
	return out
}

// UpdateStats records a task outcome against the agent that produced it.
// Unknown agent IDs are ignored.
func (r *Registry) UpdateStats(result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stats[result.AgentID]
	if !ok {
		return
	}
	s.TasksProcessed++
	if result.Status == StatusFailed || result.Status == StatusTimeout {
		s.TasksFailed++
	}
	s.TotalExecution += result.ExecutionTime
	s.LastUsed = time.Now()
}

// Stats returns a copy of the agent's usage counters.
func (r *Registry) Stats(id string) (Stats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stats[id]
	if !ok {
		return Stats{}, false
	}
	return *s, true
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
