// Package agent defines the task and result contracts between the pipeline
// orchestrator and the stage agents, plus the capability registry that maps
// stage names to agents able to serve them.
package agent

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/obscura-io/obscura/document"
)

// Capability names shared between the stage definitions and the agents that
// serve them.
const (
	CapUnderstanding  = "document_understanding"
	CapAnalysis       = "analysis"
	CapAssessment     = "security_assessment"
	CapAnonymization  = "anonymization"
	CapReporting      = "reporting"
)

// Status is the lifecycle state of a dispatched task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

// Task is one unit of stage work. Treat it as immutable once dispatched: the
// orchestrator builds a fresh Task per stage and never mutates it afterwards.
type Task struct {
	TaskID     string
	Type       string // capability name, e.g. "document_understanding"
	State      *document.State
	Timeout    time.Duration
	RetryCount int
	MaxRetries int
	CreatedAt  time.Time
}

// NewTask creates a task carrying a read snapshot of the run state.
func NewTask(taskType string, state *document.State, timeout time.Duration) Task {
	return Task{
		TaskID:     fmt.Sprintf("%s_%s", taskType, shortID()),
		Type:       taskType,
		State:      state,
		Timeout:    timeout,
		MaxRetries: 2,
		CreatedAt:  time.Now(),
	}
}

// Result is the structured outcome of one task. A Result is always produced,
// whatever happened inside the agent.
type Result struct {
	AgentID       string
	TaskID        string
	Status        Status
	Output        *document.StageOutput
	Error         string
	ExecutionTime time.Duration
	Metadata      map[string]any
}

// IsSuccess reports a completed task with no error message.
func (r Result) IsSuccess() bool {
	return r.Status == StatusCompleted && r.Error == ""
}

// Agent processes tasks for the capabilities it declares.
type Agent interface {
	// Name identifies the agent kind; the registry derives instance IDs
	// from it.
	Name() string
	// Capabilities lists the task types this agent can serve.
	Capabilities() []string
	// Healthy reports whether the agent can currently take work.
	Healthy() bool
	// Process executes the task. Blocking work must honor ctx; the
	// orchestrator cancels it at the stage deadline.
	Process(ctx context.Context, task Task) (document.StageOutput, error)
}

// Execute runs a task on an agent and synthesizes the Result: timing is
// recorded, errors become Failed, a context deadline becomes Timeout, a
// cancelled context becomes Cancelled, and a panic inside the agent is
// recovered into a Failed result rather than escaping the pipeline.
func Execute(ctx context.Context, agentID string, a Agent, task Task) (result Result) {
	start := time.Now()
	result = Result{
		AgentID: agentID,
		TaskID:  task.TaskID,
		Status:  StatusRunning,
		Metadata: map[string]any{
			"agent_name":  a.Name(),
			"task_type":   task.Type,
			"retry_count": task.RetryCount,
		},
	}

	defer func() {
		if r := recover(); r != nil {
			result.Status = StatusFailed
			result.Error = fmt.Sprintf("agent panicked: %v\n%s", r, debug.Stack())
			result.ExecutionTime = time.Since(start)
		}
	}()

	if !a.Healthy() {
		result.Status = StatusFailed
		result.Error = fmt.Sprintf("agent %s is not healthy", a.Name())
		result.ExecutionTime = time.Since(start)
		return result
	}

	output, err := a.Process(ctx, task)
	result.ExecutionTime = time.Since(start)

	switch {
	case err == nil:
		result.Status = StatusCompleted
		result.Output = &output
	case ctx.Err() == context.DeadlineExceeded:
		result.Status = StatusTimeout
		result.Error = fmt.Sprintf("task timed out after %s", task.Timeout)
	case ctx.Err() == context.Canceled:
		result.Status = StatusCancelled
		result.Error = "task cancelled"
	default:
		result.Status = StatusFailed
		result.Error = err.Error()
	}
	return result
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
