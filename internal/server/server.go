// Package server exposes the research engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ShayCichocki/prism/internal/graph"
	"github.com/ShayCichocki/prism/pkg/models"
)

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8000"
	// DefaultRequestTimeout bounds a single /ask run.
	DefaultRequestTimeout = 5 * time.Minute

	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 64 << 10
)

// Runner executes one research run. Satisfied by *graph.Engine.
type Runner interface {
	Run(ctx context.Context, question string) (*models.ExecutionState, error)
}

// Config configures the HTTP server.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
}

// Server serves the liveness and ask endpoints.
type Server struct {
	runner  Runner
	cfg     Config
	handler http.Handler
}

// New creates a Server around runner.
func New(runner Runner, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	s := &Server{runner: runner, cfg: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleStatus)
	mux.HandleFunc("GET /ask", s.handleAsk)
	mux.HandleFunc("POST /ask", s.handleAsk)
	s.handler = mux
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
// Cancelling ctx also cancels every in-flight run.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Printf("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type statusResponse struct {
	Status string `json:"status"`
}

type askRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "Agent Running"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	question, err := readQuestion(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	state, err := s.runner.Run(ctx, question)
	if err != nil {
		status := statusFor(err)
		log.Printf("[server] /ask failed after %s (status %d): %v", time.Since(start).Round(time.Millisecond), status, err)
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	log.Printf("[server] /ask answered %d tasks in %s", len(state.Tasks), time.Since(start).Round(time.Millisecond))
	writeJSON(w, http.StatusOK, state)
}

func readQuestion(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.Method == http.MethodGet {
		q := strings.TrimSpace(r.URL.Query().Get("question"))
		if q == "" {
			return "", graph.ErrEmptyQuestion
		}
		return q, nil
	}

	var req askRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return "", fmt.Errorf("invalid request body: %w", err)
	}
	q := strings.TrimSpace(req.Question)
	if q == "" {
		return "", graph.ErrEmptyQuestion
	}
	return q, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, graph.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] write response: %v", err)
	}
}
