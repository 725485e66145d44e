package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/prism/pkg/models"
)

func sampleState() *models.ExecutionState {
	state := models.NewExecutionState("How do tides work?")
	state.Tasks = []string{"moon gravity", "sun influence"}
	state.Findings = []string{"The Moon pulls the oceans.", "The Sun adds a smaller pull.\nSpring tides align both."}
	state.FinalAnswer = "research complete: 2 findings"
	return state
}

func TestWriteResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeResult(&buf, sampleState(), outputJSON); err != nil {
		t.Fatalf("writeResult() error = %v", err)
	}

	var got models.ExecutionState
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got.FinalAnswer != "research complete: 2 findings" {
		t.Errorf("final_answer = %q", got.FinalAnswer)
	}
	if len(got.Findings) != 2 {
		t.Errorf("findings = %d, want 2", len(got.Findings))
	}
}

func TestWriteResult_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := writeResult(&buf, sampleState(), outputYAML); err != nil {
		t.Fatalf("writeResult() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"question:", "final_answer:", "tasks:", "findings:"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q:\n%s", want, out)
		}
	}

	var got models.ExecutionState
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if got.Question != "How do tides work?" {
		t.Errorf("question = %q", got.Question)
	}
	if got.FinalAnswer != "research complete: 2 findings" {
		t.Errorf("final_answer = %q", got.FinalAnswer)
	}
}

func TestWriteResult_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := writeResult(&buf, sampleState(), outputText); err != nil {
		t.Fatalf("writeResult() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"How do tides work?",
		"1. moon gravity",
		"2. sun influence",
		"The Moon pulls the oceans.",
		"Spring tides align both.",
		"research complete: 2 findings",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteResult_Errors(t *testing.T) {
	var buf bytes.Buffer
	if err := writeResult(&buf, nil, outputText); err == nil {
		t.Error("writeResult(nil) error = nil, want error")
	}
	if err := writeResult(&buf, sampleState(), "xml"); err == nil {
		t.Error("writeResult(xml) error = nil, want error")
	}
}

func TestValidateOutput(t *testing.T) {
	for _, f := range []string{outputText, outputJSON, outputYAML} {
		if err := validateOutput(f); err != nil {
			t.Errorf("validateOutput(%q) error = %v", f, err)
		}
	}
	if err := validateOutput("csv"); err == nil {
		t.Error("validateOutput(csv) error = nil, want error")
	}
}

func TestIndent(t *testing.T) {
	got := indent("a\nb\nc", "  ")
	want := "a\n  b\n  c"
	if got != want {
		t.Errorf("indent() = %q, want %q", got, want)
	}
}
