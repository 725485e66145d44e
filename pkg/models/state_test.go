package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewExecutionState(t *testing.T) {
	s := NewExecutionState("  Will AI replace software engineers?  ")

	if s.Question != "Will AI replace software engineers?" {
		t.Errorf("Question = %q, want trimmed question", s.Question)
	}
	if s.Tasks == nil || s.Findings == nil {
		t.Fatal("expected non-nil Tasks and Findings so they encode as []")
	}
	if !s.Complete() {
		t.Error("empty state should be complete (0 findings for 0 tasks)")
	}
}

func TestExecutionState_Complete(t *testing.T) {
	s := &ExecutionState{Tasks: []string{"a", "b"}, Findings: []string{"x"}}
	if s.Complete() {
		t.Error("Complete() = true with 1 finding for 2 tasks")
	}
	s.Findings = append(s.Findings, "y")
	if !s.Complete() {
		t.Error("Complete() = false with 2 findings for 2 tasks")
	}
}

func TestExecutionState_JSONFields(t *testing.T) {
	s := NewExecutionState("q")
	s.Tasks = []string{"t1"}
	s.Findings = []string{"f1"}
	s.FinalAnswer = "done"

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, field := range []string{`"question"`, `"tasks"`, `"findings"`, `"final_answer"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("encoded state %s missing field %s", data, field)
		}
	}
}

func TestExecutionState_EmptyEncodesArrays(t *testing.T) {
	data, err := json.Marshal(NewExecutionState("q"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"tasks":[]`) || !strings.Contains(string(data), `"findings":[]`) {
		t.Errorf("expected empty arrays, got %s", data)
	}
	if strings.Contains(string(data), "final_answer") {
		t.Errorf("final_answer should be omitted until set, got %s", data)
	}
}
