package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Role selects which backend serves a call.
type Role string

const (
	// RoleCapable is the primary model, used for synthesis from context.
	RoleCapable Role = "capable"
	// RoleFast is the cheap model, used for raw-data synthesis. Falls back to RoleCapable.
	RoleFast Role = "fast"
)

// Provider is a single text-in/text-out model backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Gateway routes prompts to providers by role, retrying rate-limited calls
// and falling back from the fast provider to the capable one.
// It knows nothing about the research graph.
type Gateway struct {
	capable Provider
	fast    Provider
	policy  RetryPolicy
	wait    WaitFunc
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithFastProvider sets the provider for RoleFast calls.
func WithFastProvider(p Provider) GatewayOption {
	return func(g *Gateway) { g.fast = p }
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) GatewayOption {
	return func(g *Gateway) { g.policy = p }
}

// WithWaitFunc replaces the backoff sleep. Used by tests.
func WithWaitFunc(fn WaitFunc) GatewayOption {
	return func(g *Gateway) {
		if fn != nil {
			g.wait = fn
		}
	}
}

// NewGateway creates a Gateway. The capable provider is required.
func NewGateway(capable Provider, opts ...GatewayOption) (*Gateway, error) {
	if capable == nil {
		return nil, errors.New("capable provider is required")
	}
	g := &Gateway{
		capable: capable,
		policy:  DefaultRetryPolicy(),
		wait:    SleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate produces text for prompt using the provider bound to role.
func (g *Gateway) Generate(ctx context.Context, prompt string, role Role) (string, error) {
	switch role {
	case RoleCapable, "":
		return g.policy.run(ctx, g.capable, prompt, g.wait)

	case RoleFast:
		if g.fast == nil {
			return g.policy.run(ctx, g.capable, prompt, g.wait)
		}
		text, err := g.policy.run(ctx, g.fast, prompt, g.wait)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		log.Printf("[llm] fast provider %s failed, falling back to %s: %v", g.fast.Name(), g.capable.Name(), err)
		return g.policy.run(ctx, g.capable, prompt, g.wait)

	default:
		return "", fmt.Errorf("unknown model role %q", role)
	}
}
