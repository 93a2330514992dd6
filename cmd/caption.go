package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/captionforge/captionforge/internal/batch"
	"github.com/captionforge/captionforge/internal/captioning"
	"github.com/captionforge/captionforge/internal/models"
	"github.com/captionforge/captionforge/internal/project"
)

func newCaptionCmd() *cobra.Command {
	var (
		providerName    string
		model           string
		prompt          string
		endpoint        string
		temperature     float64
		concurrency     int
		triggerWord     string
		ratingFilter    []string
		onlyUncaptioned bool
		reportDir       string
	)

	cmd := &cobra.Command{
		Use:   "caption <folder>",
		Short: "Batch-caption images with a vision model",
		Long: `Runs batch captioning over a project folder. Each generated caption
is written to the image's .txt sidecar before the item counts as done, so an
interrupted run never leaves half-written captions. Failed items are reported
in the summary and left for the caller to retry.`,
		Example: `  # Caption everything that has no caption yet, via local Ollama
  captionforge caption ./dataset --only-uncaptioned

  # Caption only images rated good, four requests in flight
  captionforge caption ./dataset --rating good --concurrency 4

  # Keep "leela dog" as the first tag of every caption
  captionforge caption ./dataset --trigger-word "leela dog"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := args[0]

			store, err := project.Open(root)
			if err != nil {
				return err
			}

			providerName = captioning.ResolveName(providerName)
			provider, err := captioning.ForName(providerName)
			if err != nil {
				return err
			}
			if model == "" {
				model = captioning.DefaultModel(providerName)
			}

			var wanted []models.Rating
			for _, s := range ratingFilter {
				wanted = append(wanted, models.ParseRating(s))
			}
			entries := store.FilterByRating(wanted)
			if onlyUncaptioned {
				filtered := entries[:0]
				for _, e := range entries {
					if !e.HasCaption() {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			opts := batch.Options{
				Provider:      provider,
				ProviderName:  providerName,
				Endpoint:      endpoint,
				Model:         model,
				Prompt:        prompt,
				Temperature:   temperature,
				Concurrency:   concurrency,
				TriggerWord:   triggerWord,
				OnTagsWritten: store.ApplyTags,
				OnProgress: func(completed, total int) {
					fmt.Printf("\r%d/%d", completed, total)
				},
			}

			orchestrator := batch.New()
			job, err := orchestrator.Start(cmd.Context(), entries, opts)
			if err != nil {
				return err
			}

			// First interrupt cancels cooperatively: in-flight requests
			// finish and persist, pending items are skipped.
			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)
			go func() {
				<-interrupt
				fmt.Println("\nCancelling, letting in-flight requests finish...")
				job.Cancel()
			}()

			summary := job.Wait()
			signal.Stop(interrupt)

			fmt.Printf("\nDone: %d  Failed: %d  Skipped: %d\n", summary.Done, summary.Failed, summary.Skipped)
			for _, item := range summary.Items {
				if item.Status == batch.StatusFailed {
					fmt.Fprintf(os.Stderr, "failed: %s: %s\n", item.Path, item.Error)
				}
			}

			if reportDir != "" {
				path, err := batch.SaveReport(reportDir, root, opts, summary)
				if err != nil {
					return err
				}
				fmt.Printf("Report saved to: %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&providerName, "provider", "P", "", "Caption provider: ollama, openai, gemini, joycaption")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (provider default if empty)")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Captioning prompt (built-in tag prompt if empty)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Inference server endpoint (e.g. http://localhost:11434/v1)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.2, "Sampling temperature")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", batch.DefaultConcurrency, "Requests in flight at once")
	cmd.Flags().StringVar(&triggerWord, "trigger-word", "", "Tag kept first in every written caption")
	cmd.Flags().StringSliceVar(&ratingFilter, "rating", nil, "Only caption images with these ratings")
	cmd.Flags().BoolVar(&onlyUncaptioned, "only-uncaptioned", false, "Skip images that already have a caption")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Write a YAML run report into this directory")

	return cmd
}
