package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "captionforge",
		Short: "Image dataset curation tool with LLM-powered captioning",
		Long: `Captionforge manages folder-backed image datasets for training
generative image models: it scans projects, keeps .txt caption sidecars and
ratings in sync, finds byte-identical duplicates, drives batch captioning
against local vision models, and exports training-ready dataset layouts.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newDupesCmd())
	cmd.AddCommand(newCaptionCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}
