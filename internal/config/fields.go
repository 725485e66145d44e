package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// field is one dot-notation configuration key.
type field struct {
	key    string
	secret bool
	get    func(*Config) any
	set    func(*Config, string) error
}

func stringField(key string, ptr func(*Config) *string) field {
	return field{
		key: key,
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v string) error { *ptr(c) = v; return nil },
	}
}

func secretField(key string, ptr func(*Config) *string) field {
	f := stringField(key, ptr)
	f.secret = true
	return f
}

func intField(key string, ptr func(*Config) *int) field {
	return field{
		key: key,
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer for %s: %w", key, err)
			}
			*ptr(c) = n
			return nil
		},
	}
}

func int64Field(key string, ptr func(*Config) *int64) field {
	return field{
		key: key,
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer for %s: %w", key, err)
			}
			*ptr(c) = n
			return nil
		},
	}
}

func floatField(key string, ptr func(*Config) *float64) field {
	return field{
		key: key,
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid number for %s: %w", key, err)
			}
			*ptr(c) = n
			return nil
		},
	}
}

func boolField(key string, ptr func(*Config) *bool) field {
	return field{
		key: key,
		get: func(c *Config) any { return *ptr(c) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid boolean for %s: %w", key, err)
			}
			*ptr(c) = b
			return nil
		},
	}
}

func durationField(key string, ptr func(*Config) *time.Duration) field {
	return field{
		key: key,
		get: func(c *Config) any { return ptr(c).String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration for %s: %w", key, err)
			}
			*ptr(c) = d
			return nil
		},
	}
}

func modelFields(prefix string, m func(*Config) *ModelConfig) []field {
	return []field{
		stringField(prefix+".provider", func(c *Config) *string { return &m(c).Provider }),
		secretField(prefix+".api_key", func(c *Config) *string { return &m(c).APIKey }),
		stringField(prefix+".base_url", func(c *Config) *string { return &m(c).BaseURL }),
		stringField(prefix+".model", func(c *Config) *string { return &m(c).Model }),
		int64Field(prefix+".max_tokens", func(c *Config) *int64 { return &m(c).MaxTokens }),
		boolField(prefix+".use_bedrock", func(c *Config) *bool { return &m(c).UseBedrock }),
		stringField(prefix+".aws_region", func(c *Config) *string { return &m(c).AWSRegion }),
		stringField(prefix+".aws_profile", func(c *Config) *string { return &m(c).AWSProfile }),
	}
}

// fields lists every settable key, in display order.
var fields = func() []field {
	fs := []field{
		stringField("data_dir", func(c *Config) *string { return &c.DataDir }),
	}
	fs = append(fs, modelFields("models.capable", func(c *Config) *ModelConfig { return &c.Models.Capable })...)
	fs = append(fs, modelFields("models.fast", func(c *Config) *ModelConfig { return &c.Models.Fast })...)
	fs = append(fs,
		secretField("search.api_key", func(c *Config) *string { return &c.Search.APIKey }),
		stringField("search.depth", func(c *Config) *string { return &c.Search.Depth }),
		intField("search.max_results", func(c *Config) *int { return &c.Search.MaxResults }),
		floatField("search.rate_limit", func(c *Config) *float64 { return &c.Search.RateLimit }),
		durationField("search.timeout", func(c *Config) *time.Duration { return &c.Search.Timeout }),

		boolField("memory.enabled", func(c *Config) *bool { return &c.Memory.Enabled }),
		stringField("memory.path", func(c *Config) *string { return &c.Memory.Path }),
		intField("memory.lookup_limit", func(c *Config) *int { return &c.Memory.LookupLimit }),
		intField("memory.queue_size", func(c *Config) *int { return &c.Memory.QueueSize }),
		durationField("memory.write_timeout", func(c *Config) *time.Duration { return &c.Memory.WriteTimeout }),

		intField("retry.max_attempts", func(c *Config) *int { return &c.Retry.MaxAttempts }),
		durationField("retry.backoff", func(c *Config) *time.Duration { return &c.Retry.Backoff }),

		intField("planner.max_tasks", func(c *Config) *int { return &c.Planner.MaxTasks }),

		intField("research.max_parallel", func(c *Config) *int { return &c.Research.MaxParallel }),
		intField("research.context_limit", func(c *Config) *int { return &c.Research.ContextLimit }),
		intField("research.result_content_limit", func(c *Config) *int { return &c.Research.ResultContentLimit }),
		durationField("research.branch_timeout", func(c *Config) *time.Duration { return &c.Research.BranchTimeout }),

		stringField("synthesizer.mode", func(c *Config) *string { return &c.Synthesizer.Mode }),

		stringField("server.addr", func(c *Config) *string { return &c.Server.Addr }),
		durationField("server.request_timeout", func(c *Config) *time.Duration { return &c.Server.RequestTimeout }),

		stringField("log.file", func(c *Config) *string { return &c.Log.File }),
		intField("log.max_size_mb", func(c *Config) *int { return &c.Log.MaxSizeMB }),
		intField("log.max_backups", func(c *Config) *int { return &c.Log.MaxBackups }),
		boolField("log.verbose", func(c *Config) *bool { return &c.Log.Verbose }),
	)
	return fs
}()

func lookupField(key string) (field, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, f := range fields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

// Keys returns every configuration key in display order.
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return keys
}

// Get returns the display value of key. Secrets are masked.
func (c *Config) Get(key string) (string, error) {
	f, ok := lookupField(key)
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	if f.secret {
		return MaskAPIKey(f.get(c).(string)), nil
	}
	return fmt.Sprint(f.get(c)), nil
}

// Set parses value and stores it under key.
func (c *Config) Set(key, value string) error {
	f, ok := lookupField(key)
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return f.set(c, value)
}

// SimilarKeys suggests known keys sharing key's section, for error messages.
func SimilarKeys(key string) []string {
	section, _, _ := strings.Cut(strings.ToLower(key), ".")
	var out []string
	for _, f := range fields {
		if strings.HasPrefix(f.key, section+".") {
			out = append(out, f.key)
		}
	}
	sort.Strings(out)
	return out
}
