package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRetriesExhausted is returned when every attempt was rate limited.
var ErrRetriesExhausted = errors.New("generation failed after retries")

// RateLimitError marks a provider failure as rate limiting.
// Providers produce it from the HTTP status of the SDK error, never from message text.
type RateLimitError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err (or anything it wraps) is a RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// classifyStatus wraps a provider error according to its HTTP status.
func classifyStatus(provider string, status int, err error) error {
	if status == http.StatusTooManyRequests {
		return &RateLimitError{Provider: provider, StatusCode: status, Err: err}
	}
	return fmt.Errorf("%s: status %d: %w", provider, status, err)
}
