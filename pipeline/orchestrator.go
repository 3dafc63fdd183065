package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/obscura-io/obscura/agent"
	"github.com/obscura-io/obscura/config"
	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/errors"
	"github.com/obscura-io/obscura/logger"
)

// RunStatus is the overall outcome of a pipeline run.
type RunStatus string

const (
	// StatusSuccess means every executed stage completed.
	StatusSuccess RunStatus = "success"
	// StatusPartial means at least one stage completed and at least one
	// optional stage failed or timed out.
	StatusPartial RunStatus = "partial"
	// StatusAborted means a required stage failed and the run stopped.
	StatusAborted RunStatus = "aborted"
)

// StageResult records how one stage went.
type StageResult struct {
	Stage    string
	AgentID  string
	Status   agent.Status
	Error    string
	Duration time.Duration
	Skipped  bool // optional stage with no capable agent
}

// RunResult is the structured outcome of a run. Run never panics and never
// returns an error: every failure mode is expressed here.
type RunResult struct {
	RunID    string
	FileName string
	Status   RunStatus
	Stages   []StageResult
	State    *document.State

	// Err is the abort cause, nil unless Status == StatusAborted. It wraps
	// errors.ErrNoCapableWorker or errors.ErrTimeout where those apply, so
	// callers can classify aborts with errors.Is.
	Err error

	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration returns the wall-clock length of the run.
func (r RunResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Progress is invoked after every stage with the stage's outcome. index is
// zero-based over the stage list.
type Progress func(stage string, index, total int, status agent.Status)

// Orchestrator drives the stage sequence. One orchestrator serves any number
// of sequential or concurrent runs; the dispatch pool is shared across them.
type Orchestrator struct {
	registry *agent.Registry
	stages   []Stage
	slots    chan struct{}
	grace    time.Duration
	progress Progress
	log      *zap.SugaredLogger
}

// New creates an orchestrator with the default stage sequence.
func New(registry *agent.Registry, cfg config.PipelineConfig, log *zap.SugaredLogger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{
		registry: registry,
		stages:   DefaultStages(),
		slots:    make(chan struct{}, workers),
		grace:    time.Duration(cfg.GraceSeconds) * time.Second,
		log:      log.Named("pipeline"),
	}
}

// OnProgress sets the progress callback. Call before Run.
func (o *Orchestrator) OnProgress(fn Progress) { o.progress = fn }

// Stages returns the orchestrator's stage sequence.
func (o *Orchestrator) Stages() []Stage { return o.stages }

// Run processes one document through the stage sequence. Required-stage
// failures abort the run; optional-stage failures degrade it to partial.
// Cancelling ctx aborts the run at the next stage boundary.
func (o *Orchestrator) Run(ctx context.Context, doc *document.Document) RunResult {
	runID := uuid.NewString()
	state := document.NewState(runID, doc)
	result := RunResult{
		RunID:     runID,
		FileName:  state.FileName,
		State:     state,
		StartedAt: time.Now(),
	}

	log := o.log.With(logger.FieldRunID, runID, logger.FieldDocument, state.FileName)
	log.Infow("Pipeline run started", logger.FieldCount, len(o.stages))

	var completed, failed int
	aborted := false

	for i, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			result.Err = errors.Wrapf(err, "run cancelled before stage %s", stage.Name)
			aborted = true
			break
		}

		sr := o.runStage(ctx, log, stage, state)
		result.Stages = append(result.Stages, sr)
		o.notify(stage.Name, i, len(o.stages), sr.Status)

		switch {
		case sr.Skipped:
			if stage.Required {
				result.Err = errors.Wrapf(errors.ErrNoCapableWorker, "required stage %s", stage.Name)
				aborted = true
			}
		case sr.Status == agent.StatusCompleted:
			completed++
		default:
			failed++
			if stage.Required {
				result.Err = abortCause(stage, sr)
				aborted = true
			} else {
				log.Warnw("Optional stage failed, continuing",
					logger.FieldStage, stage.Name,
					logger.FieldStatus, sr.Status,
					logger.FieldError, sr.Error,
				)
			}
		}
		if aborted {
			break
		}
	}

	switch {
	case aborted:
		result.Status = StatusAborted
	case failed > 0:
		result.Status = StatusPartial
	default:
		result.Status = StatusSuccess
	}
	result.CompletedAt = time.Now()

	log.Infow("Pipeline run finished",
		logger.FieldStatus, string(result.Status),
		"stages_completed", completed,
		"stages_failed", failed,
		logger.FieldDurationMS, result.Duration().Milliseconds(),
	)
	return result
}

// runStage finds an agent, dispatches the task on the shared pool, and waits
// until the stage deadline plus grace. An agent that ignores cancellation
// costs the run the grace window, nothing more; its result is discarded when
// it eventually returns.
func (o *Orchestrator) runStage(ctx context.Context, log *zap.SugaredLogger, stage Stage, state *document.State) StageResult {
	candidates := o.registry.ByCapability(stage.Capability)
	if len(candidates) == 0 {
		log.Warnw("No capable agent for stage",
			logger.FieldStage, stage.Name,
			logger.FieldCapability, stage.Capability,
		)
		return StageResult{Stage: stage.Name, Status: agent.StatusFailed, Skipped: true,
			Error: "no capable agent registered"}
	}
	chosen := candidates[0]

	task := agent.NewTask(stage.Capability, state, stage.Timeout)
	log.Infow("Stage started",
		logger.FieldStage, stage.Name,
		logger.FieldAgentID, chosen.ID,
		logger.FieldTaskID, task.TaskID,
		logger.FieldTimeout, stage.Timeout.String(),
	)

	select {
	case o.slots <- struct{}{}:
	case <-ctx.Done():
		return StageResult{Stage: stage.Name, AgentID: chosen.ID, Status: agent.StatusCancelled,
			Error: "run cancelled while waiting for a worker slot"}
	}

	stageCtx, cancel := context.WithTimeout(ctx, stage.Timeout)
	defer cancel()

	resCh := make(chan agent.Result, 1)
	go func() {
		defer func() { <-o.slots }()
		resCh <- agent.Execute(stageCtx, chosen.ID, chosen.Agent, task)
	}()

	deadline := time.NewTimer(stage.Timeout + o.grace)
	defer deadline.Stop()

	var res agent.Result
	select {
	case res = <-resCh:
	case <-deadline.C:
		res = agent.Result{
			AgentID: chosen.ID,
			TaskID:  task.TaskID,
			Status:  agent.StatusTimeout,
			Error:   fmt.Sprintf("stage did not return within %s", stage.Timeout+o.grace),
		}
	}

	if res.IsSuccess() {
		state.Apply(res.Output)
	}
	o.registry.UpdateStats(res)

	log.Infow("Stage finished",
		logger.FieldStage, stage.Name,
		logger.FieldStatus, string(res.Status),
		logger.FieldDurationMS, res.ExecutionTime.Milliseconds(),
	)
	return StageResult{
		Stage:    stage.Name,
		AgentID:  chosen.ID,
		Status:   res.Status,
		Error:    res.Error,
		Duration: res.ExecutionTime,
	}
}

// abortCause classifies a required-stage failure so callers can distinguish
// deadline aborts from agent errors with errors.Is.
func abortCause(stage Stage, sr StageResult) error {
	if sr.Status == agent.StatusTimeout {
		return errors.Wrapf(errors.ErrTimeout, "required stage %s: %s", stage.Name, sr.Error)
	}
	return errors.Newf("required stage %s %s: %s", stage.Name, sr.Status, sr.Error)
}

func (o *Orchestrator) notify(stage string, index, total int, status agent.Status) {
	if o.progress != nil {
		o.progress(stage, index, total, status)
	}
}
