package export

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/captionforge/captionforge/internal/captions"
	"github.com/captionforge/captionforge/internal/models"
	"github.com/captionforge/captionforge/internal/ratings"
	"github.com/captionforge/captionforge/internal/scanner"
)

// Layout selects the on-disk shape of an export.
type Layout string

const (
	// LayoutFolder copies images and sidecars into a flat folder.
	LayoutFolder Layout = "folder"
	// LayoutZip writes a single deflate ZIP archive.
	LayoutZip Layout = "zip"
	// LayoutRating routes entries into good/ bad/ needs_edit/ subfolders
	// by rating; unrated entries are excluded.
	LayoutRating Layout = "rating"
	// LayoutKohya wraps the output folder in the <repeats>_<concept>
	// naming convention Kohya training scripts read.
	LayoutKohya Layout = "kohya"
)

// Spec configures one export run. Constructed fresh per invocation.
type Spec struct {
	Root   string `json:"root"`
	Dest   string `json:"dest"`
	Layout Layout `json:"layout"`

	// RelativePaths restricts the export to an explicit subset; nil means
	// every image under Root.
	RelativePaths []string `json:"relative_paths,omitempty"`
	// Ratings restricts the export to entries carrying one of the given
	// ratings. Ignored by LayoutRating, which buckets instead.
	Ratings []models.Rating `json:"ratings,omitempty"`

	OnlyCaptioned    bool   `json:"only_captioned"`
	SequentialNaming bool   `json:"sequential_naming"`
	TriggerWord      string `json:"trigger_word,omitempty"`

	KohyaRepeats int    `json:"kohya_repeats,omitempty"`
	KohyaConcept string `json:"kohya_concept,omitempty"`

	// Metadata switches caption output from per-image sidecars to a
	// single manifest (MetadataJSONL or MetadataParquet). Folder layouts
	// only.
	Metadata MetadataFormat `json:"metadata,omitempty"`
}

// Result reports a finished export.
type Result struct {
	ExportedCount int    `json:"exported_count"`
	SkippedCount  int    `json:"skipped_count"`
	OutputPath    string `json:"output_path"`
}

// Export materializes a filtered copy of the dataset per the spec.
// Individual copy failures increment SkippedCount and continue; only
// whole-run preconditions (bad root, empty subset, bad destination)
// return an error.
func Export(spec Spec) (*Result, error) {
	entries, err := scanner.Scan(spec.Root)
	if err != nil {
		return nil, err
	}
	if spec.Dest == "" {
		return nil, fmt.Errorf("%w: no destination path", models.ErrInvalidArgument)
	}
	if spec.Metadata != "" && (spec.Layout == LayoutZip || spec.Layout == LayoutRating) {
		return nil, fmt.Errorf("%w: metadata manifest not supported for %s layout", models.ErrInvalidArgument, spec.Layout)
	}

	subset := filterEntries(entries, spec)
	if len(subset) == 0 {
		return nil, fmt.Errorf("%w: no images match the export filter", models.ErrInvalidArgument)
	}

	slog.Info("Exporting dataset", "layout", spec.Layout, "images", len(subset), "dest", spec.Dest)

	switch spec.Layout {
	case LayoutZip:
		return exportZip(subset, spec)
	case LayoutRating:
		return exportByRating(subset, spec)
	case LayoutKohya:
		repeats := spec.KohyaRepeats
		if repeats <= 0 {
			repeats = 10
		}
		concept := spec.KohyaConcept
		if concept == "" {
			concept = "concept"
		}
		dest := filepath.Join(spec.Dest, fmt.Sprintf("%d_%s", repeats, concept))
		return exportFolder(subset, spec, dest)
	case LayoutFolder, "":
		return exportFolder(subset, spec, spec.Dest)
	default:
		return nil, fmt.Errorf("%w: unknown layout %q", models.ErrInvalidArgument, spec.Layout)
	}
}

func filterEntries(entries []*models.ImageEntry, spec Spec) []*models.ImageEntry {
	var wanted map[string]bool
	if spec.RelativePaths != nil {
		wanted = make(map[string]bool, len(spec.RelativePaths))
		for _, rel := range spec.RelativePaths {
			wanted[strings.ToLower(ratings.NormalizeKey(rel))] = true
		}
	}

	var byRating map[models.Rating]bool
	if len(spec.Ratings) > 0 && spec.Layout != LayoutRating {
		byRating = make(map[models.Rating]bool, len(spec.Ratings))
		for _, r := range spec.Ratings {
			byRating[r] = true
		}
	}

	var subset []*models.ImageEntry
	for _, e := range entries {
		if wanted != nil && !wanted[strings.ToLower(e.RelativePath)] {
			continue
		}
		if byRating != nil && !byRating[e.Rating] {
			continue
		}
		if spec.OnlyCaptioned && !e.HasCaption() {
			continue
		}
		subset = append(subset, e)
	}
	return subset
}

// destName picks the output filename for the i-th entry, disambiguating
// collisions with a numeric suffix instead of overwriting.
func destName(e *models.ImageEntry, i int, sequential bool, used map[string]bool) string {
	ext := filepath.Ext(e.Filename)
	var base string
	if sequential {
		base = fmt.Sprintf("%04d", i+1)
	} else {
		base = strings.TrimSuffix(e.Filename, ext)
	}

	name := base + ext
	for n := 2; used[strings.ToLower(name)]; n++ {
		name = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
	used[strings.ToLower(name)] = true
	return name
}

func captionText(e *models.ImageEntry, trigger string) string {
	return captions.JoinTags(captions.WithTrigger(trigger, e.Tags))
}

func exportFolder(subset []*models.ImageEntry, spec Spec, dest string) (*Result, error) {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination: %w", err)
	}

	res := &Result{OutputPath: dest}
	used := make(map[string]bool)
	var manifest []MetadataRecord

	for i, e := range subset {
		name := destName(e, i, spec.SequentialNaming, used)
		if err := copyFile(e.Path, filepath.Join(dest, name)); err != nil {
			slog.Warn("Failed to copy image", "path", e.RelativePath, "err", err)
			res.SkippedCount++
			continue
		}

		text := captionText(e, spec.TriggerWord)
		if spec.Metadata != "" {
			manifest = append(manifest, MetadataRecord{FileName: name, Text: text})
		} else if e.HasCaption() || spec.TriggerWord != "" {
			txt := strings.TrimSuffix(name, filepath.Ext(name)) + ".txt"
			if err := os.WriteFile(filepath.Join(dest, txt), []byte(text), 0644); err != nil {
				slog.Warn("Failed to write caption", "path", e.RelativePath, "err", err)
			}
		}
		res.ExportedCount++
	}

	if spec.Metadata != "" {
		if err := WriteMetadata(dest, spec.Metadata, manifest); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func exportZip(subset []*models.ImageEntry, spec Spec) (*Result, error) {
	f, err := os.Create(spec.Dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	res := &Result{OutputPath: spec.Dest}
	used := make(map[string]bool)

	for i, e := range subset {
		data, err := os.ReadFile(e.Path)
		if err != nil {
			slog.Warn("Failed to read image", "path", e.RelativePath, "err", err)
			res.SkippedCount++
			continue
		}

		name := destName(e, i, spec.SequentialNaming, used)
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to add archive entry: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write archive entry: %w", err)
		}

		if e.HasCaption() || spec.TriggerWord != "" {
			txt := strings.TrimSuffix(name, filepath.Ext(name)) + ".txt"
			w, err := zw.Create(txt)
			if err != nil {
				return nil, fmt.Errorf("failed to add archive entry: %w", err)
			}
			if _, err := w.Write([]byte(captionText(e, spec.TriggerWord))); err != nil {
				return nil, fmt.Errorf("failed to write archive entry: %w", err)
			}
		}
		res.ExportedCount++
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return res, nil
}

func exportByRating(subset []*models.ImageEntry, spec Spec) (*Result, error) {
	buckets := map[models.Rating][]*models.ImageEntry{}
	for _, e := range subset {
		if e.Rating == models.RatingNone {
			continue
		}
		buckets[e.Rating] = append(buckets[e.Rating], e)
	}
	if len(buckets) == 0 {
		return nil, fmt.Errorf("%w: no rated images to export", models.ErrInvalidArgument)
	}

	res := &Result{OutputPath: spec.Dest}
	for rating, list := range buckets {
		sub := filepath.Join(spec.Dest, string(rating))
		bucketSpec := spec
		bucketSpec.Metadata = ""
		bucketRes, err := exportFolder(list, bucketSpec, sub)
		if err != nil {
			return nil, err
		}
		res.ExportedCount += bucketRes.ExportedCount
		res.SkippedCount += bucketRes.SkippedCount
	}
	return res, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}
	return out.Close()
}
