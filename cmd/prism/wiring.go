package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/prism/internal/config"
	"github.com/ShayCichocki/prism/internal/graph"
	"github.com/ShayCichocki/prism/internal/llm"
	"github.com/ShayCichocki/prism/internal/memory"
	"github.com/ShayCichocki/prism/internal/planner"
	"github.com/ShayCichocki/prism/internal/research"
	"github.com/ShayCichocki/prism/internal/search"
	"github.com/ShayCichocki/prism/internal/synth"
)

// app holds the wired research pipeline and the resources it owns.
type app struct {
	cfg     *config.Config
	engine  *graph.Engine
	tracker *llm.TokenTracker
	store   *memory.SQLiteStore
	writer  *memory.AsyncWriter
}

// buildApp wires providers, gateway, search, memory and the engine from cfg.
// events may be nil.
func buildApp(cfg *config.Config, events *graph.EventEmitter) (*app, error) {
	a := &app{cfg: cfg, tracker: llm.NewTokenTracker()}

	capable, err := newProvider("capable", cfg.Models.Capable, a.tracker)
	if err != nil {
		return nil, err
	}
	if capable == nil {
		return nil, fmt.Errorf("models.capable.provider must be set")
	}
	fast, err := newProvider("fast", cfg.Models.Fast, a.tracker)
	if err != nil {
		return nil, err
	}

	gwOpts := []llm.GatewayOption{
		llm.WithRetryPolicy(llm.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff:     cfg.Retry.Backoff,
		}),
	}
	if fast != nil {
		gwOpts = append(gwOpts, llm.WithFastProvider(fast))
	}
	gateway, err := llm.NewGateway(capable, gwOpts...)
	if err != nil {
		return nil, err
	}

	searchKey, err := config.SearchKey(cfg)
	if err != nil {
		return nil, fmt.Errorf("search: set TAVILY_API_KEY or search.api_key: %w", err)
	}
	tavily, err := search.NewTavily(search.TavilyConfig{
		APIKey:     searchKey,
		Depth:      cfg.Search.Depth,
		MaxResults: cfg.Search.MaxResults,
		RateLimit:  cfg.Search.RateLimit,
		Timeout:    cfg.Search.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var cache memory.Cache
	if cfg.Memory.Enabled {
		store, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		a.store = store
		a.writer = memory.NewAsyncWriter(store, cfg.Memory.QueueSize, cfg.Memory.WriteTimeout)
		cache = a.writer
	} else {
		log.Printf("[prism] memory disabled, every branch will search the web")
	}

	worker := research.NewWorker(gateway, tavily, cache, research.Config{
		LookupLimit:        cfg.Memory.LookupLimit,
		ContextLimit:       cfg.Research.ContextLimit,
		ResultContentLimit: cfg.Research.ResultContentLimit,
	})

	synthesizer, err := synth.New(cfg.Synthesizer.Mode, gateway)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []graph.Option{
		graph.WithMaxParallel(cfg.Research.MaxParallel),
		graph.WithBranchTimeout(cfg.Research.BranchTimeout),
	}
	if events != nil {
		opts = append(opts, graph.WithEvents(events))
	}
	engine, err := graph.New(graph.RequiredConfig{
		Planner:     planner.New(gateway, cfg.Planner.MaxTasks),
		Researcher:  worker,
		Synthesizer: synthesizer,
	}, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = engine

	return a, nil
}

// Close flushes pending memory writes and closes the store.
func (a *app) Close() {
	if a.writer != nil {
		a.writer.Close()
		if n := a.writer.DroppedCount(); n > 0 {
			log.Printf("[prism] %d memory writes were dropped", n)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Printf("[prism] closing memory store: %v", err)
		}
	}
}

// newProvider builds the backend for one model role.
// It returns nil without error when the provider is "none" or empty.
func newProvider(role string, m config.ModelConfig, tracker *llm.TokenTracker) (llm.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(m.Provider)) {
	case "", "none":
		return nil, nil

	case "anthropic":
		var key string
		if !m.UseBedrock {
			k, err := config.ModelKey(m)
			if err != nil {
				return nil, fmt.Errorf("%s model: set %s or models.%s.api_key: %w", role, config.EnvVarFor(m), role, err)
			}
			key = k
		}
		client, err := llm.NewClient(llm.ClientConfig{
			Model:         anthropic.Model(m.Model),
			APIKey:        key,
			MaxTokens:     m.MaxTokens,
			UseAWSBedrock: m.UseBedrock,
			AWSRegion:     m.AWSRegion,
			AWSProfile:    m.AWSProfile,
			Tracker:       tracker,
		})
		if err != nil {
			return nil, fmt.Errorf("%s model: %w", role, err)
		}
		return client, nil

	case "openai":
		key, err := config.ModelKey(m)
		if err != nil {
			return nil, fmt.Errorf("%s model: set %s or models.%s.api_key: %w", role, config.EnvVarFor(m), role, err)
		}
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  key,
			BaseURL: m.BaseURL,
			Model:   m.Model,
			Tracker: tracker,
		})
		if err != nil {
			return nil, fmt.Errorf("%s model: %w", role, err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("%s model: unknown provider %q (want anthropic, openai or none)", role, m.Provider)
	}
}

// openStore opens and migrates the memory database.
func openStore(cfg *config.Config) (*memory.SQLiteStore, error) {
	store, err := memory.NewSQLiteStore(cfg.MemoryPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate memory store: %w", err)
	}
	return store, nil
}
