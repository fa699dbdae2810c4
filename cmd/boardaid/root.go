package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for boardaid.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boardaid",
		Short: "Imageboard crawler with a review filter",
		Long: `boardaid periodically crawls imageboards and downloads the images of new
threads. Threads whose posts match the block lists are held back until a
reviewer allows or denies them through the control API.

Downloaded images are deduplicated by content hash and stored on the local
disk or in an S3 compatible bucket.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .boardaid.yaml in current or home directory)")
	cmd.PersistentFlags().String("env-file", ".env", "File with environment variables for secrets")
	cmd.PersistentFlags().String("data-dir", "",
		"Directory for the database and the filter list (default: XDG data directory)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewBoardsCmd())
	cmd.AddCommand(NewFilterCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
