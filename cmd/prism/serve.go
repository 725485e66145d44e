package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/prism/internal/server"
	"github.com/ShayCichocki/prism/internal/signals"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP research service",
	Long: `Run the HTTP research service.

Endpoints:
  GET  /                 liveness: {"status":"Agent Running"}
  GET  /ask?question=...  research a question
  POST /ask              research a question from {"question": "..."}

The service stops on SIGINT/SIGTERM, or when the stop file in the data
directory's signals/ folder is created.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	restoreLog := setupLogging(cfg.Log, false)
	defer restoreLog()

	a, err := buildApp(cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	watcher, err := signals.NewWatcher(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("stop watcher: %w", err)
	}
	defer watcher.Close()

	ctx, cancel := watcher.Context(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("[prism] received %s, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := server.New(a.engine, server.Config{
		Addr:           cfg.Server.Addr,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	fmt.Fprintf(cmd.OutOrStdout(), "prism listening on %s\n", cfg.Server.Addr)
	fmt.Fprintf(cmd.OutOrStdout(), "stop with Ctrl+C or: touch %s\n", watcher.StopPath())

	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}

	in, out := a.tracker.Total()
	log.Printf("[prism] stopped after %d model calls (%d tokens in, %d out)", a.tracker.Calls(), in, out)
	return nil
}
