package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/captionforge/captionforge/internal/captions"
	"github.com/captionforge/captionforge/internal/models"
	"github.com/captionforge/captionforge/internal/ratings"
)

// EntryID derives a stable id from a forward-slash relative path. The id
// survives rescans as long as the file does not move.
func EntryID(relativePath string) string {
	sum := sha256.Sum256([]byte(ratings.NormalizeKey(relativePath)))
	return hex.EncodeToString(sum[:8])
}

// Scan walks a project root and builds the in-memory entry list: one
// ImageEntry per image file, paired with its caption sidecar and rating.
// Per-image problems (undecodable dimensions, unreadable captions) degrade
// that entry instead of failing the scan.
func Scan(root string) ([]*models.ImageEntry, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	paths, err := WalkImages(absRoot)
	if err != nil {
		return nil, err
	}

	store, err := ratings.Load(absRoot)
	if err != nil {
		return nil, err
	}

	entries := make([]*models.ImageEntry, 0, len(paths))
	for _, path := range paths {
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			continue
		}
		rel = strings.ReplaceAll(rel, string(filepath.Separator), "/")

		entry := &models.ImageEntry{
			ID:           EntryID(rel),
			Path:         path,
			RelativePath: rel,
			Filename:     filepath.Base(path),
			Rating:       store.Get(rel),
		}

		if info, err := os.Stat(path); err == nil {
			entry.FileSize = info.Size()
		}

		if w, h, err := Dimensions(path); err == nil {
			entry.Width = &w
			entry.Height = &h
		} else {
			slog.Debug("Could not read image dimensions", "path", path, "err", err)
		}

		tags, err := captions.ReadTags(path)
		if err != nil {
			slog.Warn("Could not read caption", "path", path, "err", err)
		}
		entry.Tags = tags

		entries = append(entries, entry)
	}

	slog.Info("Project scanned", "root", absRoot, "images", len(entries))
	return entries, nil
}

// Dimensions decodes just the image header to get pixel dimensions.
func Dimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
