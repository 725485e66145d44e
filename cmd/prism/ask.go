package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/prism/internal/graph"
	"github.com/ShayCichocki/prism/internal/tui"
	"github.com/ShayCichocki/prism/pkg/models"
)

// Output formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

var (
	askOutput   string
	askProgress bool
	askMode     string
	askTimeout  time.Duration
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Research a question",
	Long: `Research a question and print the answer.

The question is planned into sub-questions that are researched in
parallel. Each branch checks memory first and falls back to web search.

Examples:
  prism ask "What are the tradeoffs of event sourcing?"
  prism ask --progress "How do tides work?"
  prism ask --output json "Is Rust memory safe?"
  prism ask --mode summarize "Why did the Bronze Age collapse?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askOutput, "output", "o", outputText, "Output format: text, json or yaml")
	askCmd.Flags().BoolVar(&askProgress, "progress", false, "Show live branch progress")
	askCmd.Flags().StringVar(&askMode, "mode", "", "Synthesizer mode override: passthrough or summarize")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 0, "Abort the run after this long (0 = no limit)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return graph.ErrEmptyQuestion
	}
	if err := validateOutput(askOutput); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if askMode != "" {
		cfg.Synthesizer.Mode = askMode
	}

	restoreLog := setupLogging(cfg.Log, askProgress || !cfg.Log.Verbose)
	defer restoreLog()

	var events *graph.EventEmitter
	if askProgress {
		events = graph.NewEventEmitter(100)
	}

	a, err := buildApp(cfg, events)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if askTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, askTimeout)
		defer cancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	var state *models.ExecutionState
	if askProgress {
		state, err = runWithProgress(ctx, cancel, a.engine, events, question)
	} else {
		state, err = a.engine.Run(ctx, question)
	}
	if err != nil {
		return err
	}

	if err := writeResult(cmd.OutOrStdout(), state, askOutput); err != nil {
		return err
	}

	if cfg.Log.Verbose {
		in, out := a.tracker.Total()
		fmt.Fprintf(cmd.ErrOrStderr(), "tokens: %d in, %d out over %d calls\n", in, out, a.tracker.Calls())
	}
	return nil
}

// runWithProgress runs the engine behind the progress view.
// Quitting the view early cancels the run.
func runWithProgress(ctx context.Context, cancel context.CancelFunc, engine *graph.Engine, events *graph.EventEmitter, question string) (*models.ExecutionState, error) {
	model := tui.NewProgressModel(question)
	program := tea.NewProgram(model)

	go tui.Forward(program, events.Events())

	type result struct {
		state *models.ExecutionState
		err   error
	}
	runDone := make(chan result, 1)
	go func() {
		state, err := engine.Run(ctx, question)
		events.Close()
		program.Send(tui.DoneMsg{State: state, Err: err})
		runDone <- result{state: state, err: err}
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-runDone
		return nil, fmt.Errorf("progress view: %w", err)
	}

	// The view exits on DoneMsg or when the user quits; either way the run must finish.
	cancel()
	r := <-runDone
	return r.state, r.err
}

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// writeResult renders state in the requested format.
func writeResult(w io.Writer, state *models.ExecutionState, format string) error {
	if state == nil {
		return errors.New("no result to write")
	}

	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(state)

	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(state); err != nil {
			return err
		}
		return enc.Close()

	case outputText, "":
		return writeText(w, state)

	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, state *models.ExecutionState) error {
	heading := color.New(color.Bold, color.FgCyan)
	dim := color.New(color.Faint)

	var b strings.Builder
	b.WriteString(heading.Sprint("Question"))
	b.WriteString("\n  " + state.Question + "\n\n")

	b.WriteString(heading.Sprintf("Research plan (%d tasks)", len(state.Tasks)))
	b.WriteString("\n")
	for i, task := range state.Tasks {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, task)
	}
	b.WriteString("\n")

	if len(state.Findings) > 0 {
		b.WriteString(heading.Sprint("Findings"))
		b.WriteString("\n")
		for i, finding := range state.Findings {
			b.WriteString(dim.Sprintf("  [%d]", i+1))
			b.WriteString(" " + indent(strings.TrimSpace(finding), "      ") + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(heading.Sprint("Answer"))
	b.WriteString("\n")
	b.WriteString("  " + indent(strings.TrimSpace(state.FinalAnswer), "  "))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// indent prefixes every line after the first with prefix.
func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
