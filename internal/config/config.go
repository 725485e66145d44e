// Package config handles configuration loading and management for prism.
// It supports XDG config paths, project-level overrides, .env files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for prism.
type Config struct {
	DataDir     string            `mapstructure:"data_dir"`
	Models      ModelsConfig      `mapstructure:"models"`
	Search      SearchConfig      `mapstructure:"search"`
	Memory      MemoryConfig      `mapstructure:"memory"`
	Retry       RetryConfig       `mapstructure:"retry"`
	Planner     PlannerConfig     `mapstructure:"planner"`
	Research    ResearchConfig    `mapstructure:"research"`
	Synthesizer SynthesizerConfig `mapstructure:"synthesizer"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
}

// ModelsConfig binds the two model roles to backends.
type ModelsConfig struct {
	Capable ModelConfig `mapstructure:"capable"`
	Fast    ModelConfig `mapstructure:"fast"`
}

// ModelConfig describes one model backend.
type ModelConfig struct {
	// Provider is "anthropic", "openai" (any OpenAI-compatible endpoint) or "none".
	Provider   string `mapstructure:"provider"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	MaxTokens  int64  `mapstructure:"max_tokens"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// SearchConfig holds web search settings.
type SearchConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Depth      string        `mapstructure:"depth"`
	MaxResults int           `mapstructure:"max_results"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// MemoryConfig holds research cache settings.
type MemoryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Path         string        `mapstructure:"path"`
	LookupLimit  int           `mapstructure:"lookup_limit"`
	QueueSize    int           `mapstructure:"queue_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RetryConfig holds the rate-limit retry policy.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// PlannerConfig holds planning settings.
type PlannerConfig struct {
	MaxTasks int `mapstructure:"max_tasks"`
}

// ResearchConfig holds fan-out and context settings.
type ResearchConfig struct {
	MaxParallel        int           `mapstructure:"max_parallel"`
	ContextLimit       int           `mapstructure:"context_limit"`
	ResultContentLimit int           `mapstructure:"result_content_limit"`
	BranchTimeout      time.Duration `mapstructure:"branch_timeout"`
}

// SynthesizerConfig selects the synthesizer.
type SynthesizerConfig struct {
	Mode string `mapstructure:"mode"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LogConfig holds log output settings. An empty File logs to stderr.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Verbose    bool   `mapstructure:"verbose"`
}

// ProjectConfigName is the project-level override file.
const ProjectConfigName = ".prism.yaml"

// Load loads configuration from XDG paths, project overrides, .env and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, GROQ_API_KEY, TAVILY_API_KEY, PRISM_*)
// 2. .env in the current directory (never overrides variables already set)
// 3. Project config (.prism.yaml in current directory or parent)
// 4. User config (~/.config/prism/config.yaml)
// 5. Built-in defaults
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

// Save writes cfg to the user config file.
func Save(cfg *Config) error {
	return SaveTo(cfg, GetUserConfigPath())
}

// SaveTo writes cfg as YAML to path, creating parent directories.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	for _, f := range fields {
		v.Set(f.key, f.get(cfg))
	}
	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// DefaultDataDir returns the XDG data directory for prism.
func DefaultDataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", ".local", "share", "prism")
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "prism")
}

// MemoryPath returns the memory database path, defaulting into DataDir.
func (c *Config) MemoryPath() string {
	if c.Memory.Path != "" {
		return c.Memory.Path
	}
	return filepath.Join(c.DataDir, "memory.db")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Models.Capable.APIKey = expandEnv(cfg.Models.Capable.APIKey)
	cfg.Models.Fast.APIKey = expandEnv(cfg.Models.Fast.APIKey)
	cfg.Search.APIKey = expandEnv(cfg.Search.APIKey)
	cfg.DataDir = expandEnv(cfg.DataDir)
	cfg.Memory.Path = expandEnv(cfg.Memory.Path)
	cfg.Log.File = expandEnv(cfg.Log.File)
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}

	return cfg, nil
}

// bindEnv maps provider key variables and PRISM_<SECTION>_<KEY> overrides.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("PRISM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("models.capable.api_key", "PRISM_MODELS_CAPABLE_API_KEY", "ANTHROPIC_API_KEY")
	v.BindEnv("models.fast.api_key", "PRISM_MODELS_FAST_API_KEY", "GROQ_API_KEY")
	v.BindEnv("search.api_key", "PRISM_SEARCH_API_KEY", "TAVILY_API_KEY")
}

// loadDotEnv loads path into the environment if it exists.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()
	for _, f := range fields {
		v.SetDefault(f.key, f.get(d))
	}
}

// getUserConfigDir returns the XDG config directory for prism.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "prism")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "prism")
	}
	return filepath.Join(home, ".config", "prism")
}

// findProjectConfig searches for .prism.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Models: ModelsConfig{
			Capable: ModelConfig{
				Provider:  "anthropic",
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: 4096,
			},
			Fast: ModelConfig{
				Provider:  "openai",
				BaseURL:   "https://api.groq.com/openai/v1",
				Model:     "llama-3.1-8b-instant",
				MaxTokens: 4096,
			},
		},
		Search: SearchConfig{
			Depth:      "advanced",
			MaxResults: 3,
			RateLimit:  2,
			Timeout:    30 * time.Second,
		},
		Memory: MemoryConfig{
			Enabled:      true,
			LookupLimit:  2,
			QueueSize:    64,
			WriteTimeout: 10 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Backoff:     5 * time.Second,
		},
		Planner: PlannerConfig{
			MaxTasks: 8,
		},
		Research: ResearchConfig{
			MaxParallel:        8,
			ContextLimit:       4000,
			ResultContentLimit: 1000,
			BranchTimeout:      2 * time.Minute,
		},
		Synthesizer: SynthesizerConfig{
			Mode: "passthrough",
		},
		Server: ServerConfig{
			Addr:           ":8000",
			RequestTimeout: 5 * time.Minute,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
