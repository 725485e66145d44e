// Package planner turns a question into independent research tasks.
package planner

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ShayCichocki/prism/internal/llm"
)

// DefaultMaxTasks caps how many tasks a single plan may produce.
const DefaultMaxTasks = 8

// jsonObject matches from the first '{' to the last '}' across lines.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// Generator produces text for a prompt. Satisfied by *llm.Gateway.
type Generator interface {
	Generate(ctx context.Context, prompt string, role llm.Role) (string, error)
}

// Planner makes exactly one model call per question.
type Planner struct {
	gen      Generator
	maxTasks int
}

// New creates a Planner. maxTasks <= 0 uses DefaultMaxTasks.
func New(gen Generator, maxTasks int) *Planner {
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}
	return &Planner{gen: gen, maxTasks: maxTasks}
}

// Plan returns between 1 and maxTasks research tasks for question.
// A model error is returned; an unusable response falls back to the question itself.
func (p *Planner) Plan(ctx context.Context, question string) ([]string, error) {
	raw, err := p.gen.Generate(ctx, fmt.Sprintf(planningPrompt, question), llm.RoleCapable)
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}
	return ParseTasks(raw, question, p.maxTasks), nil
}

// ParseTasks extracts the "tasks" array from a model response.
// Entries are trimmed; blanks and duplicates are dropped and the list is
// capped at max. Anything unusable yields []string{question}.
func ParseTasks(raw, question string, max int) []string {
	fallback := []string{question}

	obj := jsonObject.FindString(raw)
	if obj == "" {
		log.Printf("[planner] no JSON object in response, using question as the only task")
		return fallback
	}
	if !gjson.Valid(obj) {
		log.Printf("[planner] malformed JSON in response, using question as the only task")
		return fallback
	}

	field := gjson.Get(obj, "tasks")
	if !field.IsArray() {
		log.Printf("[planner] response has no tasks array, using question as the only task")
		return fallback
	}

	seen := make(map[string]bool)
	var tasks []string
	for _, item := range field.Array() {
		if item.Type != gjson.String {
			log.Printf("[planner] non-string task %s, using question as the only task", item.Raw)
			return fallback
		}
		task := strings.TrimSpace(item.String())
		if task == "" || seen[task] {
			continue
		}
		seen[task] = true
		tasks = append(tasks, task)
		if max > 0 && len(tasks) == max {
			break
		}
	}

	if len(tasks) == 0 {
		return fallback
	}
	return tasks
}
