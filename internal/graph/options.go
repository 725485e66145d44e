package graph

import (
	"context"
	"time"

	"github.com/ShayCichocki/prism/pkg/models"
)

// Planner turns a question into research tasks.
type Planner interface {
	Plan(ctx context.Context, question string) ([]string, error)
}

// Researcher produces one finding for one branch.
type Researcher interface {
	Research(ctx context.Context, branch models.Branch) (string, error)
}

// Synthesizer produces the final answer once all findings are in.
type Synthesizer interface {
	Synthesize(ctx context.Context, state *models.ExecutionState) (string, error)
}

// RequiredConfig contains the collaborators every Engine needs.
// All fields are required and have no defaults.
type RequiredConfig struct {
	Planner     Planner
	Researcher  Researcher
	Synthesizer Synthesizer
}

// DefaultMaxParallel bounds concurrent branches when no limit is configured.
const DefaultMaxParallel = 8

// Option configures an Engine. Use With* functions to create Options.
type Option func(*engineOptions)

type engineOptions struct {
	maxParallel   int
	branchTimeout time.Duration
	events        *EventEmitter
}

// WithMaxParallel sets how many branches may research at once.
func WithMaxParallel(n int) Option {
	return func(o *engineOptions) { o.maxParallel = n }
}

// WithBranchTimeout bounds each branch. Zero means only the run context applies.
func WithBranchTimeout(d time.Duration) Option {
	return func(o *engineOptions) { o.branchTimeout = d }
}

// WithEvents attaches an emitter that receives progress events.
func WithEvents(e *EventEmitter) Option {
	return func(o *engineOptions) { o.events = e }
}
