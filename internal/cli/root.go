// Package cli defines Cobra command definitions for the planet CLI.
// This file contains the root command, version flag, and help output.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planet-dev/planet/internal/tui"
)

var (
	serverFlag   string
	logLevelFlag string
	version      = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "planet",
	Short: "Ask questions about your PDFs",
	Long: `Planet uploads a PDF to a document Q&A server and lets you ask
questions about it. Run it in a terminal for the full-screen chat, or use
the subcommands for scripted uploads and one-shot questions.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Full-screen chat on a terminal, plain line chat otherwise.
		if !tui.IsTTY() {
			return runChat(cmd, args)
		}
		return runTUI(cmd.Context())
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Server base URL (overrides config and PLANET_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Diagnostic log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(uploadsCmd)
	rootCmd.AddCommand(cleanCmd)
}
