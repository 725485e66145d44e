package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/prism/internal/config"
)

var (
	rootVerbose bool
	rootConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "prism",
	Short: "Parallel question research engine",
	Long: `Prism answers a question by planning it into independent sub-questions,
researching each one in parallel (memory first, then the web), and
combining the findings into a single answer.

Core commands:
  prism ask "question"   Research a question from the terminal
  prism serve            Run the HTTP service (GET /ask?question=...)
  prism memory           Inspect and seed the research memory
  prism config           View or change configuration`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", "", "Config file (default: ~/.config/prism/config.yaml + .prism.yaml)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration honoring the --config and --verbose flags.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if rootConfig != "" {
		cfg, err = config.LoadFromPath(rootConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if rootVerbose {
		cfg.Log.Verbose = true
	}
	return cfg, nil
}
