package llm

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Error("NewClient() without key error = nil, want error")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(ClientConfig{APIKey: "sk-ant-test"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.model != anthropic.ModelClaudeSonnet4_20250514 {
		t.Errorf("model = %q, want default sonnet", c.model)
	}
	if c.maxTokens != defaultMaxTokens {
		t.Errorf("maxTokens = %d, want %d", c.maxTokens, defaultMaxTokens)
	}
	if c.Name() != "anthropic/"+string(anthropic.ModelClaudeSonnet4_20250514) {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	tests := []struct {
		in   anthropic.Model
		want anthropic.Model
	}{
		{anthropic.ModelClaudeSonnet4_20250514, "us.anthropic.claude-sonnet-4-20250514-v1:0"},
		{anthropic.ModelClaudeHaiku4_5_20251001, "us.anthropic.claude-haiku-4-5-20251001-v1:0"},
		{"us.anthropic.custom-v1:0", "us.anthropic.custom-v1:0"},
	}
	for _, tt := range tests {
		if got := translateModelForBedrock(tt.in); got != tt.want {
			t.Errorf("translateModelForBedrock(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewOpenAIClient(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	if _, err := NewOpenAIClient(OpenAIConfig{}); err == nil {
		t.Error("NewOpenAIClient() without key error = nil, want error")
	}

	c, err := NewOpenAIClient(OpenAIConfig{APIKey: "gsk_test"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	if c.Name() != "openai/"+DefaultOpenAIModel {
		t.Errorf("Name() = %q, want openai/%s", c.Name(), DefaultOpenAIModel)
	}
}
