package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/prism/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify prism configuration.

Without arguments, displays current configuration and API key status.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/prism/config.yaml
Project-specific overrides can be placed in .prism.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			displayAllConfig(out, cfg)
			return nil
		case 1:
			value, err := cfg.Get(args[0])
			if err != nil {
				return withSuggestions(err, args[0])
			}
			fmt.Fprintln(out, value)
			return nil
		default:
			if err := cfg.Set(args[0], args[1]); err != nil {
				return withSuggestions(err, args[0])
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			display, _ := cfg.Get(args[0])
			fmt.Fprintf(out, "Set %s = %s\n", strings.ToLower(args[0]), display)
			return nil
		}
	},
}

// displayAllConfig prints every key and where each API key comes from.
func displayAllConfig(w io.Writer, cfg *config.Config) {
	for _, key := range config.Keys() {
		value, _ := cfg.Get(key)
		if value == "" {
			value = "(not set)"
		}
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "API keys:")
	for _, info := range config.KeyStatus(cfg) {
		source := string(info.Source)
		if info.Source == config.KeySourceEnv {
			source = info.EnvVar
		}
		fmt.Fprintf(w, "  %s: %s (%s)\n", info.Name, config.MaskAPIKey(info.Key), source)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "user config:    %s\n", config.GetUserConfigPath())
	if p := config.GetProjectConfigPath(); p != "" {
		fmt.Fprintf(w, "project config: %s\n", p)
	}
}

func withSuggestions(err error, key string) error {
	similar := config.SimilarKeys(key)
	if len(similar) == 0 {
		return err
	}
	warn := color.New(color.FgYellow)
	fmt.Fprintln(os.Stderr, warn.Sprint("Did you mean one of:"))
	for _, k := range similar {
		fmt.Fprintf(os.Stderr, "  %s\n", k)
	}
	return err
}
