// Package research answers a single research task, from memory when it can
// and from the web when it must.
package research

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ShayCichocki/prism/internal/llm"
	"github.com/ShayCichocki/prism/internal/memory"
	"github.com/ShayCichocki/prism/internal/search"
	"github.com/ShayCichocki/prism/pkg/models"
)

// ErrEmptyTask is returned when a branch carries no task text.
var ErrEmptyTask = errors.New("research task is empty")

// Generator produces text for a prompt. Satisfied by *llm.Gateway.
type Generator interface {
	Generate(ctx context.Context, prompt string, role llm.Role) (string, error)
}

// Searcher fetches web results for a query. Satisfied by *search.Tavily.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// Config holds the worker's size limits.
type Config struct {
	// LookupLimit is how many memories a lookup may return.
	LookupLimit int
	// ContextLimit caps the formatted web context, in characters.
	ContextLimit int
	// ResultContentLimit caps each search result's content, in characters.
	ResultContentLimit int
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		LookupLimit:        2,
		ContextLimit:       4000,
		ResultContentLimit: 1000,
	}
}

// Worker runs one research branch at a time and keeps no per-branch state,
// so a single Worker can serve every branch of a run concurrently.
type Worker struct {
	gen    Generator
	search Searcher
	cache  memory.Cache
	cfg    Config
}

// NewWorker creates a Worker. cache may be nil to disable memory.
func NewWorker(gen Generator, searcher Searcher, cache memory.Cache, cfg Config) *Worker {
	def := DefaultConfig()
	if cfg.LookupLimit <= 0 {
		cfg.LookupLimit = def.LookupLimit
	}
	if cfg.ContextLimit <= 0 {
		cfg.ContextLimit = def.ContextLimit
	}
	if cfg.ResultContentLimit <= 0 {
		cfg.ResultContentLimit = def.ResultContentLimit
	}
	return &Worker{gen: gen, search: searcher, cache: cache, cfg: cfg}
}

// Research produces one finding for branch.Task.
func (w *Worker) Research(ctx context.Context, branch models.Branch) (string, error) {
	task := strings.TrimSpace(branch.Task)
	if task == "" {
		return "", ErrEmptyTask
	}

	if past := w.lookup(ctx, task); len(past) > 0 {
		log.Printf("[research] branch %d: memory hit (%d entries)", branch.Index, len(past))
		prompt := fmt.Sprintf(memoryPrompt, task, strings.Join(past, "\n\n"))
		finding, err := w.gen.Generate(ctx, prompt, llm.RoleCapable)
		if err != nil {
			return "", fmt.Errorf("answer from memory: %w", err)
		}
		return finding, nil
	}

	log.Printf("[research] branch %d: memory miss, searching the web", branch.Index)
	results, err := w.search.Search(ctx, task)
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}
	webData := search.Clip(search.Format(results, w.cfg.ResultContentLimit), w.cfg.ContextLimit)

	prompt := fmt.Sprintf(webPrompt, task, webData)
	finding, err := w.gen.Generate(ctx, prompt, llm.RoleFast)
	if err != nil {
		return "", fmt.Errorf("answer from web data: %w", err)
	}

	w.remember(ctx, finding)
	return finding, nil
}

// lookup treats any cache failure as a miss.
func (w *Worker) lookup(ctx context.Context, task string) []string {
	if w.cache == nil {
		return nil
	}
	past, err := w.cache.Lookup(ctx, task, w.cfg.LookupLimit)
	if err != nil {
		log.Printf("[research] memory lookup failed, treating as miss: %v", err)
		return nil
	}
	return past
}

func (w *Worker) remember(ctx context.Context, finding string) {
	if w.cache == nil || strings.TrimSpace(finding) == "" {
		return
	}
	if err := w.cache.Store(ctx, finding); err != nil {
		log.Printf("[research] memory write-back failed: %v", err)
	}
}
