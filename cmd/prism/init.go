package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/prism/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create a project config and check API keys",
	Long: `Create a .prism.yaml project config and check that API keys are set.

The directory argument is optional and defaults to the current directory.

Examples:
  prism init              # Initialize current directory
  prism init ./research   # Initialize a specific directory
  prism init --force      # Overwrite an existing .prism.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing .prism.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing prism in %s...\n\n", absPath)

	written, err := writeProjectConfig(absPath, initForce)
	if err != nil {
		printStatus("✗", "Could not write "+config.ProjectConfigName, color.FgRed)
		return err
	}
	if written {
		printStatus("✓", "Created "+config.ProjectConfigName, color.FgGreen)
	} else {
		printStatus("⚠", config.ProjectConfigName+" already exists (use --force to overwrite)", color.FgYellow)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	missing := 0
	for _, info := range config.KeyStatus(cfg) {
		label := info.Name
		if info.EnvVar != "" {
			label = info.EnvVar
		}
		switch err := config.ValidateAPIKey(info.EnvVar, info.Key); {
		case info.Key == "":
			missing++
			printStatus("⚠", label+" not set (you can set it later)", color.FgYellow)
		case err != nil:
			printStatus("⚠", fmt.Sprintf("%s looks wrong: %v", label, err), color.FgYellow)
		default:
			printStatus("✓", label+" is set", color.FgGreen)
		}
	}

	fmt.Println()
	if missing > 0 {
		fmt.Println("Set the missing keys in your environment or a .env file, then run:")
	} else {
		fmt.Println("Ready. Try:")
	}
	fmt.Println(`  prism ask "What causes the seasons?"`)
	return nil
}

// writeProjectConfig writes the project config template into dir.
// It reports false when the file exists and force is not set.
func writeProjectConfig(dir string, force bool) (bool, error) {
	path := filepath.Join(dir, config.ProjectConfigName)
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(projectConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

const projectConfigTemplate = `# prism project configuration.
# Values here override ~/.config/prism/config.yaml.
# API keys are read from ANTHROPIC_API_KEY, GROQ_API_KEY and TAVILY_API_KEY.

models:
  capable:
    provider: anthropic
    model: claude-sonnet-4-20250514
  fast:
    # "none" routes every call to the capable model.
    provider: openai
    base_url: https://api.groq.com/openai/v1
    model: llama-3.1-8b-instant

search:
  depth: advanced
  max_results: 3

planner:
  max_tasks: 8

research:
  max_parallel: 8
  branch_timeout: 2m

# passthrough returns the findings count; summarize asks the capable model
# for a combined answer.
synthesizer:
  mode: passthrough
`
