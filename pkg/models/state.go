package models

import "strings"

// ExecutionState is the record threaded through one research run.
// It is created per question and discarded once the answer is returned.
type ExecutionState struct {
	// Question is the original question. Set once at entry.
	Question string `json:"question" yaml:"question"`
	// Tasks are the planner's sub-questions. Set once; defines fan-out width.
	Tasks []string `json:"tasks" yaml:"tasks"`
	// Findings holds one entry per task, in branch completion order.
	Findings []string `json:"findings" yaml:"findings"`
	// FinalAnswer is set by the synthesizer.
	FinalAnswer string `json:"final_answer,omitempty" yaml:"final_answer,omitempty"`
}

// NewExecutionState initializes state for a question.
func NewExecutionState(question string) *ExecutionState {
	return &ExecutionState{
		Question: strings.TrimSpace(question),
		Tasks:    []string{},
		Findings: []string{},
	}
}

// Complete reports whether every task has contributed a finding.
func (s *ExecutionState) Complete() bool {
	return len(s.Findings) == len(s.Tasks)
}

// Branch is the state visible to a single research branch.
// Siblings never share or observe each other's Branch.
type Branch struct {
	// Index is the task's position in the plan, used for logging only.
	Index int
	// Task is the sub-question this branch researches.
	Task string
}
