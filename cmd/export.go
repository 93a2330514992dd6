package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/captionforge/captionforge/internal/export"
	"github.com/captionforge/captionforge/internal/models"
)

func newExportCmd() *cobra.Command {
	var (
		layout        string
		ratingFilter  []string
		onlyCaptioned bool
		sequential    bool
		triggerWord   string
		metadata      string
		kohyaRepeats  int
		kohyaConcept  string
	)

	cmd := &cobra.Command{
		Use:   "export <folder> <dest>",
		Short: "Export a filtered copy of the dataset",
		Long: `Exports images and captions into a training-ready layout: a flat
folder, a ZIP archive, rating-bucketed subfolders, or a Kohya-style repeat
folder. Individual copy failures are counted and skipped; the run fails only
on whole-operation problems like an empty subset.`,
		Example: `  # Flat folder with sequential names, captioned images only
  captionforge export ./dataset ./out --only-captioned --sequential

  # ZIP archive
  captionforge export ./dataset ./dataset.zip --layout zip

  # Kohya folder: out/10_leela/...
  captionforge export ./dataset ./out --layout kohya --repeats 10 --concept leela

  # HuggingFace-style metadata manifest instead of sidecars
  captionforge export ./dataset ./out --metadata jsonl`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var wanted []models.Rating
			for _, s := range ratingFilter {
				wanted = append(wanted, models.ParseRating(s))
			}

			result, err := export.Export(export.Spec{
				Root:             args[0],
				Dest:             args[1],
				Layout:           export.Layout(layout),
				Ratings:          wanted,
				OnlyCaptioned:    onlyCaptioned,
				SequentialNaming: sequential,
				TriggerWord:      triggerWord,
				Metadata:         export.MetadataFormat(metadata),
				KohyaRepeats:     kohyaRepeats,
				KohyaConcept:     kohyaConcept,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Exported %d images (%d skipped) to %s\n",
				result.ExportedCount, result.SkippedCount, result.OutputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&layout, "layout", "folder", "Output layout: folder, zip, rating, kohya")
	cmd.Flags().StringSliceVar(&ratingFilter, "rating", nil, "Only export images with these ratings")
	cmd.Flags().BoolVar(&onlyCaptioned, "only-captioned", false, "Skip images without a caption")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "Name output files 0001.ext, 0002.ext, ...")
	cmd.Flags().StringVar(&triggerWord, "trigger-word", "", "Tag prepended to every exported caption")
	cmd.Flags().StringVar(&metadata, "metadata", "", "Write a manifest instead of sidecars: jsonl or parquet")
	cmd.Flags().IntVar(&kohyaRepeats, "repeats", 10, "Repeat count for the kohya layout")
	cmd.Flags().StringVar(&kohyaConcept, "concept", "", "Concept name for the kohya layout")

	return cmd
}
