package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when a required API key is not configured.
var ErrNoAPIKey = errors.New("no API key configured")

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// KeyInfo describes one credential prism uses.
type KeyInfo struct {
	// Name is the config key, e.g. "models.capable.api_key".
	Name string
	// EnvVar is the provider environment variable checked first.
	EnvVar string
	Key    string
	Source KeySource
}

// ResolveKey returns the key for envVar, falling back to the configured
// value. Unexpanded ${VAR} references count as unset.
func ResolveKey(envVar, configured string) (string, KeySource) {
	if envVar != "" {
		if key := os.Getenv(envVar); key != "" {
			return key, KeySourceEnv
		}
	}
	key := os.ExpandEnv(configured)
	if key != "" && !strings.HasPrefix(key, "${") {
		return key, KeySourceConfig
	}
	return "", KeySourceNone
}

// EnvVarFor returns the conventional key variable for a model provider.
func EnvVarFor(m ModelConfig) string {
	switch strings.ToLower(m.Provider) {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		if m.BaseURL == "" || strings.Contains(m.BaseURL, "groq.com") {
			return "GROQ_API_KEY"
		}
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// ModelKey returns the API key for a model backend.
func ModelKey(m ModelConfig) (string, error) {
	key, _ := ResolveKey(EnvVarFor(m), m.APIKey)
	if key == "" {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// SearchKey returns the Tavily API key.
func SearchKey(cfg *Config) (string, error) {
	key, _ := ResolveKey("TAVILY_API_KEY", cfg.Search.APIKey)
	if key == "" {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// KeyStatus reports every credential and where it came from.
// The fast key is omitted when no fast provider is configured.
func KeyStatus(cfg *Config) []KeyInfo {
	var infos []KeyInfo
	add := func(name, envVar, configured string) {
		key, src := ResolveKey(envVar, configured)
		infos = append(infos, KeyInfo{Name: name, EnvVar: envVar, Key: key, Source: src})
	}

	add("models.capable.api_key", EnvVarFor(cfg.Models.Capable), cfg.Models.Capable.APIKey)
	if p := strings.ToLower(cfg.Models.Fast.Provider); p != "" && p != "none" {
		add("models.fast.api_key", EnvVarFor(cfg.Models.Fast), cfg.Models.Fast.APIKey)
	}
	add("search.api_key", "TAVILY_API_KEY", cfg.Search.APIKey)
	return infos
}

// keyPrefixes are the documented key formats per provider variable.
var keyPrefixes = map[string]string{
	"ANTHROPIC_API_KEY": "sk-ant-",
	"GROQ_API_KEY":      "gsk_",
	"TAVILY_API_KEY":    "tvly-",
}

// ValidateAPIKey performs basic format validation for the key that envVar names.
// It does not verify the key with the provider.
func ValidateAPIKey(envVar, key string) error {
	if key == "" {
		return ErrNoAPIKey
	}

	if prefix, ok := keyPrefixes[envVar]; ok && !strings.HasPrefix(key, prefix) {
		return errors.New("invalid API key format: expected '" + prefix + "' prefix")
	}

	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}

	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}
