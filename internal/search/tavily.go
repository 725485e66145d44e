// Package search fetches web context for research tasks.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTavilyURL is the Tavily search endpoint.
	DefaultTavilyURL = "https://api.tavily.com/search"
	// DefaultDepth asks Tavily for its slower, more thorough search.
	DefaultDepth = "advanced"
	// DefaultMaxResults is how many results a single search returns.
	DefaultMaxResults = 3

	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 2.0
)

var (
	// ErrNoAPIKey is returned when no Tavily key is configured.
	ErrNoAPIKey = errors.New("tavily: API key is missing")
	// ErrRateLimited is returned when Tavily answers 429.
	ErrRateLimited = errors.New("tavily: rate limited")
)

// Result is a single web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// TavilyConfig configures a Tavily client.
type TavilyConfig struct {
	// APIKey for Tavily. If empty, uses TAVILY_API_KEY env var.
	APIKey string
	// BaseURL overrides the endpoint. Used by tests.
	BaseURL string
	// Depth is "basic" or "advanced". Defaults to DefaultDepth.
	Depth string
	// MaxResults defaults to DefaultMaxResults.
	MaxResults int
	// RateLimit is the maximum requests per second across all branches.
	RateLimit float64
	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// Tavily calls the Tavily search API.
// It is safe for concurrent use; all callers share one rate limiter.
type Tavily struct {
	apiKey     string
	url        string
	depth      string
	maxResults int
	client     *http.Client
	limiter    *rate.Limiter
}

// NewTavily constructs a Tavily search client.
func NewTavily(cfg TavilyConfig) (*Tavily, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("TAVILY_API_KEY")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}

	t := &Tavily{
		apiKey:     apiKey,
		url:        cfg.BaseURL,
		depth:      cfg.Depth,
		maxResults: cfg.MaxResults,
	}
	if t.url == "" {
		t.url = DefaultTavilyURL
	}
	if t.depth == "" {
		t.depth = DefaultDepth
	}
	if t.maxResults <= 0 {
		t.maxResults = DefaultMaxResults
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	t.client = &http.Client{Timeout: timeout}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	t.limiter = rate.NewLimiter(rate.Limit(limit), 1)

	return t, nil
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []Result `json:"results"`
}

// Search posts query to Tavily and returns at most MaxResults hits.
func (t *Tavily) Search(ctx context.Context, query string) ([]Result, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		SearchDepth: t.depth,
		MaxResults:  t.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(out.Results) > t.maxResults {
		out.Results = out.Results[:t.maxResults]
	}
	return out.Results, nil
}
