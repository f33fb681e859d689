package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sketchrun",
	Short: "Sketchrun - turn canvas mockups into working prototypes",
	Long: `Sketchrun hosts the mockup-to-prototype pipeline: a drawn UI capture
goes to a vision model and comes back as a runnable HTML document,
kept as a live artifact that can be viewed, edited, resized, and
exported as a screenshot.

Running sketchrun without a subcommand starts the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
