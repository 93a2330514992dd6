package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/captionforge/captionforge/internal/dedup"
)

func newDupesCmd() *cobra.Command {
	var workers int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "dupes <folder>",
		Short: "Find byte-identical duplicate images",
		Long: `Fingerprints every image under the folder in parallel and reports
groups of files with identical content. Files that could not be read are
listed separately; they never abort the scan.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := dedup.FindDuplicates(args[0], workers)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			if len(report.Groups) == 0 {
				fmt.Println("No duplicates found")
			}
			for _, g := range report.Groups {
				fmt.Printf("%s (%d files)\n", g.Fingerprint[:16], len(g.Paths))
				for _, p := range g.Paths {
					fmt.Printf("  %s\n", p)
				}
			}
			for _, e := range report.Errors {
				fmt.Fprintf(os.Stderr, "error: %s: %s\n", e.Path, e.Reason)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Hashing workers (0 = number of CPUs)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}
