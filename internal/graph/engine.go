// Package graph runs the research workflow: plan a question into tasks,
// research every task in parallel, merge the findings and synthesize.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/prism/pkg/models"
)

// ErrEmptyQuestion is returned by Run when the question is blank.
var ErrEmptyQuestion = errors.New("question is empty")

// Engine executes runs. It holds no per-run state and is safe for concurrent use.
type Engine struct {
	planner       Planner
	researcher    Researcher
	synthesizer   Synthesizer
	maxParallel   int
	branchTimeout time.Duration
	events        *EventEmitter
}

// New creates an Engine from its required collaborators and options.
func New(req RequiredConfig, opts ...Option) (*Engine, error) {
	if req.Planner == nil || req.Researcher == nil || req.Synthesizer == nil {
		return nil, errors.New("planner, researcher and synthesizer are required")
	}

	o := &engineOptions{maxParallel: DefaultMaxParallel}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxParallel < 1 {
		o.maxParallel = DefaultMaxParallel
	}

	return &Engine{
		planner:       req.Planner,
		researcher:    req.Researcher,
		synthesizer:   req.Synthesizer,
		maxParallel:   o.maxParallel,
		branchTimeout: o.branchTimeout,
		events:        o.events,
	}, nil
}

// Run answers question. Planner, synthesizer and cancellation errors end the
// run; a failing branch only degrades its own finding.
func (e *Engine) Run(ctx context.Context, question string) (*models.ExecutionState, error) {
	state := models.NewExecutionState(question)
	if state.Question == "" {
		return nil, ErrEmptyQuestion
	}

	runID := uuid.New().String()[:8]
	start := time.Now()
	e.emit(Event{Type: EventRunStarted, RunID: runID, Branch: -1, Message: state.Question})
	log.Printf("[graph] run %s: planning %q", runID, state.Question)

	tasks, err := e.planner.Plan(ctx, state.Question)
	if err != nil {
		return nil, e.fail(runID, start, fmt.Errorf("plan: %w", err))
	}
	state.Tasks = append(state.Tasks, tasks...)
	e.emit(Event{Type: EventPlanned, RunID: runID, Branch: -1, Total: len(tasks)})
	log.Printf("[graph] run %s: %d tasks planned", runID, len(tasks))

	acc := NewAccumulator(len(tasks))
	var g errgroup.Group
	g.SetLimit(e.maxParallel)
	for i, task := range tasks {
		b := models.Branch{Index: i, Task: task}
		g.Go(func() error {
			e.runBranch(ctx, runID, b, len(tasks), acc)
			// Branches never fail the group, so siblings keep running.
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, e.fail(runID, start, err)
	}
	state.Findings = acc.Findings()

	answer, err := e.synthesizer.Synthesize(ctx, state)
	if err != nil {
		return nil, e.fail(runID, start, fmt.Errorf("synthesize: %w", err))
	}
	state.FinalAnswer = answer

	e.emit(Event{
		Type:     EventSynthesized,
		RunID:    runID,
		Branch:   -1,
		Total:    len(tasks),
		Done:     len(state.Findings),
		Message:  answer,
		Duration: time.Since(start),
	})
	log.Printf("[graph] run %s: complete with %d findings in %s", runID, len(state.Findings), time.Since(start).Round(time.Millisecond))
	return state, nil
}

func (e *Engine) runBranch(ctx context.Context, runID string, b models.Branch, total int, acc *Accumulator) {
	start := time.Now()
	e.emit(Event{Type: EventBranchStarted, RunID: runID, Branch: b.Index, Task: b.Task, Total: total})

	finding, err := e.research(ctx, b)
	if err != nil {
		log.Printf("[graph] run %s: branch %d failed: %v", runID, b.Index, err)
		done := acc.Merge(DegradedFinding(b.Task, err))
		e.emit(Event{
			Type: EventBranchFailed, RunID: runID, Branch: b.Index, Task: b.Task,
			Error: err, Total: total, Done: done, Duration: time.Since(start),
		})
		return
	}

	done := acc.Merge(finding)
	e.emit(Event{
		Type: EventBranchCompleted, RunID: runID, Branch: b.Index, Task: b.Task,
		Total: total, Done: done, Duration: time.Since(start),
	})
}

// research calls the researcher with the branch's own deadline and turns a
// panic into an error so it cannot take down sibling branches.
func (e *Engine) research(ctx context.Context, b models.Branch) (finding string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.branchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.branchTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.researcher.Research(ctx, b)
}

func (e *Engine) fail(runID string, start time.Time, err error) error {
	log.Printf("[graph] run %s: failed: %v", runID, err)
	e.emit(Event{Type: EventRunFailed, RunID: runID, Branch: -1, Error: err, Duration: time.Since(start)})
	return err
}

func (e *Engine) emit(ev Event) {
	if e.events != nil {
		e.events.Emit(ev)
	}
}

// DegradedFinding is recorded in place of a finding when a branch fails.
func DegradedFinding(task string, err error) string {
	return fmt.Sprintf("research failed for task %q: %v", task, err)
}
