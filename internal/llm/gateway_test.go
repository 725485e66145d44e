package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedProvider returns queued results in order, then repeats the last one.
type scriptedProvider struct {
	name    string
	mu      sync.Mutex
	results []scriptedResult
	calls   int
	prompts []string
}

type scriptedResult struct {
	text string
	err  error
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Complete(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	idx := p.calls
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	p.calls++
	r := p.results[idx]
	return r.text, r.err
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func rateLimited(provider string) error {
	return &RateLimitError{Provider: provider, StatusCode: 429, Err: errors.New("too many requests")}
}

// countingWait records waits without sleeping.
type countingWait struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (w *countingWait) Wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.waits = append(w.waits, d)
	return ctx.Err()
}

func (w *countingWait) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waits)
}

func newTestGateway(t *testing.T, capable, fast Provider, wait *countingWait) *Gateway {
	t.Helper()
	opts := []GatewayOption{
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3, Backoff: 5 * time.Second}),
		WithWaitFunc(wait.Wait),
	}
	if fast != nil {
		opts = append(opts, WithFastProvider(fast))
	}
	g, err := NewGateway(capable, opts...)
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	return g
}

func TestNewGateway_RequiresCapable(t *testing.T) {
	if _, err := NewGateway(nil); err == nil {
		t.Error("NewGateway(nil) error = nil, want error")
	}
}

func TestGenerate_RetriesRateLimitThenSucceeds(t *testing.T) {
	capable := &scriptedProvider{name: "capable", results: []scriptedResult{
		{err: rateLimited("capable")},
		{err: rateLimited("capable")},
		{text: "third time lucky"},
	}}
	wait := &countingWait{}
	g := newTestGateway(t, capable, nil, wait)

	text, err := g.Generate(context.Background(), "prompt", RoleCapable)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "third time lucky" {
		t.Errorf("Generate() = %q, want %q", text, "third time lucky")
	}
	if capable.Calls() != 3 {
		t.Errorf("provider calls = %d, want 3", capable.Calls())
	}
	if wait.Count() != 2 {
		t.Errorf("backoff waits = %d, want 2", wait.Count())
	}
	for _, d := range wait.waits {
		if d != 5*time.Second {
			t.Errorf("backoff = %v, want 5s", d)
		}
	}
}

func TestGenerate_RetriesExhausted(t *testing.T) {
	capable := &scriptedProvider{name: "capable", results: []scriptedResult{
		{err: rateLimited("capable")},
	}}
	wait := &countingWait{}
	g := newTestGateway(t, capable, nil, wait)

	_, err := g.Generate(context.Background(), "prompt", RoleCapable)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Generate() error = %v, want ErrRetriesExhausted", err)
	}
	if !IsRateLimited(err) {
		t.Error("exhausted error should still wrap the last rate-limit error")
	}
	if capable.Calls() != 3 {
		t.Errorf("provider calls = %d, want 3", capable.Calls())
	}
	if wait.Count() != 2 {
		t.Errorf("backoff waits = %d, want 2", wait.Count())
	}
}

func TestGenerate_NonRateLimitErrorNotRetried(t *testing.T) {
	boom := errors.New("bad request")
	capable := &scriptedProvider{name: "capable", results: []scriptedResult{{err: boom}}}
	wait := &countingWait{}
	g := newTestGateway(t, capable, nil, wait)

	_, err := g.Generate(context.Background(), "prompt", RoleCapable)
	if !errors.Is(err, boom) {
		t.Fatalf("Generate() error = %v, want %v", err, boom)
	}
	if capable.Calls() != 1 {
		t.Errorf("provider calls = %d, want 1", capable.Calls())
	}
	if wait.Count() != 0 {
		t.Errorf("backoff waits = %d, want 0", wait.Count())
	}
}

func TestGenerate_FastSuccessSkipsCapable(t *testing.T) {
	capable := &scriptedProvider{name: "capable", results: []scriptedResult{{text: "capable"}}}
	fast := &scriptedProvider{name: "fast", results: []scriptedResult{{text: "fast"}}}
	g := newTestGateway(t, capable, fast, &countingWait{})

	text, err := g.Generate(context.Background(), "prompt", RoleFast)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "fast" {
		t.Errorf("Generate() = %q, want %q", text, "fast")
	}
	if capable.Calls() != 0 {
		t.Errorf("capable calls = %d, want 0", capable.Calls())
	}
}

func TestGenerate_FastFailureFallsBackOnce(t *testing.T) {
	tests := []struct {
		name     string
		capable  scriptedResult
		wantText string
		wantErr  bool
	}{
		{name: "fallback succeeds", capable: scriptedResult{text: "from capable"}, wantText: "from capable"},
		{name: "fallback fails", capable: scriptedResult{err: errors.New("capable down")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capable := &scriptedProvider{name: "capable", results: []scriptedResult{tt.capable}}
			fast := &scriptedProvider{name: "fast", results: []scriptedResult{{err: errors.New("connection reset")}}}
			g := newTestGateway(t, capable, fast, &countingWait{})

			text, err := g.Generate(context.Background(), "prompt", RoleFast)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if text != tt.wantText {
				t.Errorf("Generate() = %q, want %q", text, tt.wantText)
			}
			if fast.Calls() != 1 {
				t.Errorf("fast calls = %d, want 1", fast.Calls())
			}
			if capable.Calls() != 1 {
				t.Errorf("capable calls = %d, want exactly 1 fallback", capable.Calls())
			}
			if capable.prompts[0] != "prompt" {
				t.Errorf("fallback prompt = %q, want original prompt", capable.prompts[0])
			}
		})
	}
}

func TestGenerate_FastRateLimitedRetriesBeforeFallback(t *testing.T) {
	capable := &scriptedProvider{name: "capable", results: []scriptedResult{{text: "ok"}}}
	fast := &scriptedProvider{name: "fast", results: []scriptedResult{{err: rateLimited("fast")}}}
	wait := &countingWait{}
	g := newTestGateway(t, capable, fast, wait)

	text, err := g.Generate(context.Background(), "prompt", RoleFast)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "ok" {
		t.Errorf("Generate() = %q, want %q", text, "ok")
	}
	if fast.Calls() != 3 {
		t.Errorf("fast calls = %d, want 3", fast.Calls())
	}
	if capable.Calls() != 1 {
		t.Errorf("capable calls = %d, want 1", capable.Calls())
	}
}

func TestGenerate_NoFastProviderUsesCapable(t *testing.T) {
	capable := &scriptedProvider{name: "capable", results: []scriptedResult{{text: "capable"}}}
	g := newTestGateway(t, capable, nil, &countingWait{})

	text, err := g.Generate(context.Background(), "prompt", RoleFast)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "capable" {
		t.Errorf("Generate() = %q, want %q", text, "capable")
	}
}

func TestGenerate_CancelledContextSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	capable := &scriptedProvider{name: "capable", results: []scriptedResult{{text: "should not run"}}}
	fast := &scriptedProvider{name: "fast", results: []scriptedResult{{err: context.Canceled}}}
	g := newTestGateway(t, capable, fast, &countingWait{})

	if _, err := g.Generate(ctx, "prompt", RoleFast); err == nil {
		t.Fatal("Generate() error = nil, want cancellation error")
	}
	if capable.Calls() != 0 {
		t.Errorf("capable calls = %d, want 0 after cancellation", capable.Calls())
	}
}

func TestGenerate_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	capable := &scriptedProvider{name: "capable", results: []scriptedResult{{err: rateLimited("capable")}}}

	g, err := NewGateway(capable, WithWaitFunc(func(ctx context.Context, d time.Duration) error {
		cancel()
		return SleepContext(ctx, time.Hour)
	}))
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}

	_, err = g.Generate(ctx, "prompt", RoleCapable)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Generate() error = %v, want context.Canceled", err)
	}
	if capable.Calls() != 1 {
		t.Errorf("provider calls = %d, want 1", capable.Calls())
	}
}

func TestGenerate_UnknownRole(t *testing.T) {
	capable := &scriptedProvider{name: "capable", results: []scriptedResult{{text: "x"}}}
	g := newTestGateway(t, capable, nil, &countingWait{})

	if _, err := g.Generate(context.Background(), "prompt", Role("slow")); err == nil {
		t.Error("Generate() with unknown role error = nil, want error")
	}
}

func TestClassifyStatus(t *testing.T) {
	base := errors.New("upstream")

	err := classifyStatus("p", 429, base)
	if !IsRateLimited(err) {
		t.Errorf("status 429 should classify as rate limited, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Error("rate limit error should wrap the original error")
	}

	for _, status := range []int{400, 401, 500, 503} {
		err := classifyStatus("p", status, base)
		if IsRateLimited(err) {
			t.Errorf("status %d classified as rate limited", status)
		}
		if !errors.Is(err, base) {
			t.Errorf("status %d error should wrap the original error", status)
		}
	}
}

func TestTokenTracker(t *testing.T) {
	tr := NewTokenTracker()
	tr.Add(100, 20)
	tr.Add(50, 5)

	in, out := tr.Total()
	if in != 150 || out != 25 {
		t.Errorf("Total() = (%d, %d), want (150, 25)", in, out)
	}
	if tr.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", tr.Calls())
	}

	tr.Reset()
	in, out = tr.Total()
	if in != 0 || out != 0 || tr.Calls() != 0 {
		t.Error("Reset() did not clear usage")
	}
}
