package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/captionforge/captionforge/internal/scanner"
)

func newScanCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan <folder>",
		Short: "Scan a project folder and list its images",
		Long: `Scans a project folder recursively, pairing every image with its
caption sidecar and rating, and prints the resulting entries.`,
		Example: `  # Human-readable listing
  captionforge scan ./dataset

  # Machine-readable output
  captionforge scan ./dataset --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := scanner.Scan(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			captioned := 0
			for _, e := range entries {
				dims := "?x?"
				if e.Width != nil && e.Height != nil {
					dims = fmt.Sprintf("%dx%d", *e.Width, *e.Height)
				}
				marker := " "
				if e.HasCaption() {
					marker = "*"
					captioned++
				}
				fmt.Printf("%s %-40s %9s %8d bytes  %-10s %d tags\n",
					marker, e.RelativePath, dims, e.FileSize, e.Rating, len(e.Tags))
			}
			fmt.Printf("\n%d images, %d captioned\n", len(entries), captioned)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")

	return cmd
}
