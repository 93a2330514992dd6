package captions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Captions live in a .txt sidecar next to each image, same base name,
// comma-separated tags. A missing sidecar and an empty sidecar both mean
// "no caption".
//
// Writes fully replace the sidecar via a temp file in the same directory
// followed by a rename, so a concurrent reader never observes a partial
// write. Callers must not issue overlapping writes for the same image;
// the store does not keep a per-file lock table.

// SidecarPath returns the caption file path for an image.
func SidecarPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + ".txt"
}

// ParseTags splits raw caption text on commas, trims whitespace, and drops
// empty entries, preserving order.
func ParseTags(raw string) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// JoinTags serializes tags as comma-and-space joined text.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// ReadTags reads and parses the caption sidecar for an image. A missing
// sidecar yields an empty list, not an error.
func ReadTags(imagePath string) ([]string, error) {
	raw, err := os.ReadFile(SidecarPath(imagePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read caption: %w", err)
	}
	return ParseTags(string(raw)), nil
}

// WriteTags replaces the caption sidecar content with the given tags.
// An empty list truncates the sidecar so ReadTags afterward returns nothing.
func WriteTags(imagePath string, tags []string) error {
	return writeFileAtomic(SidecarPath(imagePath), []byte(JoinTags(tags)))
}

// AddTag appends a tag to the image's caption unless an equal tag (case
// insensitive) is already present. Returns the resulting tag list.
func AddTag(imagePath, tag string) ([]string, error) {
	tags, err := ReadTags(imagePath)
	if err != nil {
		return nil, err
	}

	tag = strings.TrimSpace(tag)
	if tag == "" {
		return tags, nil
	}
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return tags, nil
		}
	}

	tags = append(tags, tag)
	if err := WriteTags(imagePath, tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// RemoveTag deletes a tag (case insensitive) from the image's caption.
// Returns the resulting tag list.
func RemoveTag(imagePath, tag string) ([]string, error) {
	tags, err := ReadTags(imagePath)
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(strings.TrimSpace(tag))
	kept := tags[:0]
	for _, t := range tags {
		if strings.ToLower(t) != want {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(tags) {
		return tags, nil
	}

	if err := WriteTags(imagePath, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// ReorderTags replaces the caption with the given ordered list.
func ReorderTags(imagePath string, tags []string) error {
	return WriteTags(imagePath, tags)
}

// DeleteImage removes an image file and its caption sidecar. A missing
// sidecar is not an error.
func DeleteImage(imagePath string) error {
	if err := os.Remove(imagePath); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	if err := os.Remove(SidecarPath(imagePath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete caption: %w", err)
	}
	return nil
}

// WithTrigger ensures the trigger word is the first tag. An equal tag
// elsewhere in the list is moved to the front rather than duplicated.
func WithTrigger(trigger string, tags []string) []string {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return tags
	}
	for i, t := range tags {
		if strings.EqualFold(t, trigger) {
			if i == 0 {
				return tags
			}
			return append([]string{trigger}, append(tags[:i:i], tags[i+1:]...)...)
		}
	}
	return append([]string{trigger}, tags...)
}

// writeFileAtomic writes data to a temp file in the destination directory
// and renames it over the target.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".caption-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write caption: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace caption: %w", err)
	}
	return nil
}
