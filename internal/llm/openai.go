package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	oaioption "github.com/openai/openai-go/v2/option"
)

const (
	// DefaultOpenAIBaseURL points at Groq's OpenAI-compatible endpoint.
	DefaultOpenAIBaseURL = "https://api.groq.com/openai/v1"
	// DefaultOpenAIModel is a small, fast model served by Groq.
	DefaultOpenAIModel = "llama-3.1-8b-instant"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	inner   openai.Client
	model   string
	tracker *TokenTracker
}

// OpenAIConfig contains configuration for creating a new OpenAIClient.
type OpenAIConfig struct {
	// APIKey for the endpoint. If empty, uses GROQ_API_KEY env var.
	APIKey string
	// BaseURL of the endpoint. Defaults to DefaultOpenAIBaseURL.
	BaseURL string
	// Model name. Defaults to DefaultOpenAIModel.
	Model string
	// Tracker receives token usage. A private tracker is created when nil.
	Tracker *TokenTracker
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY environment variable is not set")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = NewTokenTracker()
	}

	inner := openai.NewClient(
		oaioption.WithAPIKey(apiKey),
		oaioption.WithBaseURL(baseURL),
		oaioption.WithMaxRetries(0),
	)

	return &OpenAIClient{
		inner:   inner,
		model:   model,
		tracker: tracker,
	}, nil
}

// Name identifies the provider in logs and errors.
func (c *OpenAIClient) Name() string {
	return "openai/" + c.model
}

// Complete sends a single user message and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.inner.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", classifyStatus(c.Name(), apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("%s: %w", c.Name(), err)
	}

	c.tracker.Add(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty completion", c.Name())
	}
	return resp.Choices[0].Message.Content, nil
}
