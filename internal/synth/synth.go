// Package synth turns a run's findings into the final answer.
package synth

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ShayCichocki/prism/internal/llm"
	"github.com/ShayCichocki/prism/pkg/models"
)

// Mode names accepted by New.
const (
	ModePassThrough = "passthrough"
	ModeSummarize   = "summarize"
)

// Synthesizer produces the final answer from a completed research phase.
type Synthesizer interface {
	Synthesize(ctx context.Context, state *models.ExecutionState) (string, error)
}

// Generator produces text for a prompt. Satisfied by *llm.Gateway.
type Generator interface {
	Generate(ctx context.Context, prompt string, role llm.Role) (string, error)
}

// PassThrough reports completion without another model call.
type PassThrough struct{}

// Synthesize returns a fixed placeholder naming the number of findings.
func (PassThrough) Synthesize(_ context.Context, state *models.ExecutionState) (string, error) {
	return fmt.Sprintf("research complete: %d findings", len(state.Findings)), nil
}

// Summarizer asks the capable model for a single combined answer.
type Summarizer struct {
	gen Generator
}

// NewSummarizer creates a Summarizer backed by gen.
func NewSummarizer(gen Generator) *Summarizer {
	return &Summarizer{gen: gen}
}

// Synthesize summarizes the findings. A model failure falls back to the
// pass-through answer so finished research is never discarded.
func (s *Summarizer) Synthesize(ctx context.Context, state *models.ExecutionState) (string, error) {
	if len(state.Findings) == 0 {
		return PassThrough{}.Synthesize(ctx, state)
	}

	var findings strings.Builder
	for i, f := range state.Findings {
		fmt.Fprintf(&findings, "Finding %d:\n%s\n\n", i+1, strings.TrimSpace(f))
	}

	prompt := fmt.Sprintf(summaryPrompt, state.Question, findings.String())
	answer, err := s.gen.Generate(ctx, prompt, llm.RoleCapable)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Printf("[synth] summarize failed, falling back to pass-through: %v", err)
		return PassThrough{}.Synthesize(ctx, state)
	}
	return strings.TrimSpace(answer), nil
}

// New returns the synthesizer for mode. An empty mode means pass-through.
func New(mode string, gen Generator) (Synthesizer, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModePassThrough:
		return PassThrough{}, nil
	case ModeSummarize:
		if gen == nil {
			return nil, fmt.Errorf("synthesizer mode %q requires a model gateway", mode)
		}
		return NewSummarizer(gen), nil
	default:
		return nil, fmt.Errorf("unknown synthesizer mode %q", mode)
	}
}

const summaryPrompt = `You are a research analyst. Combine the findings below into one clear, balanced answer to the question.
Keep facts from the findings; do not invent new ones. Note where findings disagree.

Question:
%s

Findings:
%s`
