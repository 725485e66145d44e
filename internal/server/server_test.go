package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/prism/pkg/models"
)

type fakeRunner struct {
	err      error
	question string
	deadline time.Time
	block    bool
}

func (f *fakeRunner) Run(ctx context.Context, question string) (*models.ExecutionState, error) {
	f.question = question
	f.deadline, _ = ctx.Deadline()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	s := models.NewExecutionState(question)
	s.Tasks = []string{"a", "b"}
	s.Findings = []string{"fa", "fb"}
	s.FinalAnswer = "research complete: 2 findings"
	return s, nil
}

func TestStatus(t *testing.T) {
	srv := New(&fakeRunner{}, Config{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "Agent Running" {
		t.Errorf("body = %v", body)
	}
}

func TestAsk_Get(t *testing.T) {
	runner := &fakeRunner{}
	srv := New(runner, Config{RequestTimeout: time.Minute})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ask?question=Will+AI+replace+engineers%3F", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if runner.question != "Will AI replace engineers?" {
		t.Errorf("question = %q", runner.question)
	}
	if runner.deadline.IsZero() {
		t.Error("run context has no deadline")
	}

	var state models.ExecutionState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(state.Tasks) != 2 || len(state.Findings) != 2 || state.FinalAnswer == "" {
		t.Errorf("state = %+v", state)
	}
}

func TestAsk_Post(t *testing.T) {
	runner := &fakeRunner{}
	srv := New(runner, Config{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question": "  why?  "}`))
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if runner.question != "why?" {
		t.Errorf("question = %q, want %q", runner.question, "why?")
	}
}

func TestAsk_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"missing query", http.MethodGet, "/ask", ""},
		{"blank query", http.MethodGet, "/ask?question=%20%20", ""},
		{"blank body question", http.MethodPost, "/ask", `{"question": ""}`},
		{"invalid json", http.MethodPost, "/ask", `{"question":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			srv := New(runner, Config{})
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if runner.question != "" {
				t.Error("runner was called for a bad request")
			}
		})
	}
}

func TestAsk_RunErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("plan: %w", errors.New("generation failed after retries")), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		srv := New(&fakeRunner{err: tt.err}, Config{})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ask?question=q", nil))

		if rec.Code != tt.want {
			t.Errorf("error %v: status = %d, want %d", tt.err, rec.Code, tt.want)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
			t.Errorf("error %v: body missing error field", tt.err)
		}
	}
}

func TestAsk_RequestTimeout(t *testing.T) {
	srv := New(&fakeRunner{block: true}, Config{RequestTimeout: 20 * time.Millisecond})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ask?question=q", nil))

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
}

func TestUnknownPath(t *testing.T) {
	srv := New(&fakeRunner{}, Config{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListenAndServe_ShutsDownOnCancel(t *testing.T) {
	srv := New(&fakeRunner{}, Config{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
