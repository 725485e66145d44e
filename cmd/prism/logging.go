package main

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ShayCichocki/prism/internal/config"
)

// setupLogging routes the standard logger according to cfg.
// With a log file configured, output goes to a rotating file. Otherwise it
// goes to stderr, or nowhere when quiet is set and verbose is not.
// The returned func restores the previous output.
func setupLogging(cfg config.LogConfig, quiet bool) func() {
	original := log.Writer()
	restore := func() { log.SetOutput(original) }

	switch {
	case cfg.File != "":
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			log.Printf("[prism] cannot create log directory, logging to stderr: %v", err)
			return restore
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		log.SetOutput(lj)
		return func() {
			log.SetOutput(original)
			lj.Close()
		}
	case quiet && !cfg.Verbose:
		log.SetOutput(io.Discard)
	default:
		log.SetOutput(os.Stderr)
	}
	return restore
}
