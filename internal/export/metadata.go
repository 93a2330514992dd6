package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/captionforge/captionforge/internal/models"
)

// MetadataFormat selects the manifest flavor written instead of sidecars.
type MetadataFormat string

const (
	// MetadataJSONL writes metadata.jsonl, one {file_name, text} object
	// per line, the HuggingFace imagefolder convention.
	MetadataJSONL MetadataFormat = "jsonl"
	// MetadataParquet writes metadata.parquet with the same records.
	MetadataParquet MetadataFormat = "parquet"
)

// MetadataRecord is one manifest row pairing an exported image with its
// caption text.
type MetadataRecord struct {
	FileName string `json:"file_name" parquet:"file_name"`
	Text     string `json:"text" parquet:"text"`
}

// WriteMetadata writes the manifest for an exported folder.
func WriteMetadata(dir string, format MetadataFormat, records []MetadataRecord) error {
	switch format {
	case MetadataJSONL:
		return writeJSONL(filepath.Join(dir, "metadata.jsonl"), records)
	case MetadataParquet:
		return writeParquet(filepath.Join(dir, "metadata.parquet"), records)
	default:
		return fmt.Errorf("%w: unknown metadata format %q", models.ErrInvalidArgument, format)
	}
}

func writeJSONL(path string, records []MetadataRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write manifest record: %w", err)
		}
	}
	return f.Close()
}

func writeParquet(path string, records []MetadataRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[MetadataRecord](f)
	if _, err := writer.Write(records); err != nil {
		return fmt.Errorf("failed to write manifest records: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish manifest: %w", err)
	}
	return f.Close()
}
