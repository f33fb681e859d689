package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sketchrun/sketchrun/internal/config"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	fmt.Printf("Sketchrun %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Model: %s\n", cfg.ModelName)
	if cfg.Endpoint != "" {
		fmt.Printf("  Endpoint: %s\n", cfg.Endpoint)
	} else {
		fmt.Println("  Endpoint: not configured")
	}
	fmt.Printf("  Screenshot timeout: %s\n", cfg.ScreenshotTimeout())

	return nil
}
