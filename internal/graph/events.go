package graph

import "time"

// EventType represents the type of engine event.
type EventType string

const (
	// EventRunStarted indicates a question was accepted.
	EventRunStarted EventType = "run_started"
	// EventPlanned indicates the planner produced the task list.
	EventPlanned EventType = "planned"
	// EventBranchStarted indicates a research branch began.
	EventBranchStarted EventType = "branch_started"
	// EventBranchCompleted indicates a branch produced a finding.
	EventBranchCompleted EventType = "branch_completed"
	// EventBranchFailed indicates a branch failed and recorded a degraded finding.
	EventBranchFailed EventType = "branch_failed"
	// EventSynthesized indicates the final answer is ready.
	EventSynthesized EventType = "synthesized"
	// EventRunFailed indicates the run ended with an error.
	EventRunFailed EventType = "run_failed"
)

// Event is emitted by the engine as a run progresses.
// Subscribers such as the progress view use it to render state.
type Event struct {
	Type  EventType
	RunID string
	// Branch is the branch index for branch events, -1 otherwise.
	Branch int
	// Task is the branch task for branch events.
	Task    string
	Message string
	Error   error
	// Total is the number of planned tasks, once known.
	Total int
	// Done is the number of findings merged so far.
	Done      int
	Timestamp time.Time
	Duration  time.Duration
}
