package captions

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSidecarPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{
			name:     "png image",
			path:     "/data/photo.png",
			expected: "/data/photo.txt",
		},
		{
			name:     "uppercase extension",
			path:     "/data/photo.JPG",
			expected: "/data/photo.txt",
		},
		{
			name:     "dotted base name",
			path:     "/data/photo.v2.jpeg",
			expected: "/data/photo.v2.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SidecarPath(tt.path); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{
			name:     "simple list",
			raw:      "dog, outdoors, sunny",
			expected: []string{"dog", "outdoors", "sunny"},
		},
		{
			name:     "whitespace and empties dropped",
			raw:      "  dog ,, ,outdoors,",
			expected: []string{"dog", "outdoors"},
		},
		{
			name:     "order preserved",
			raw:      "z, a, m",
			expected: []string{"z", "a", "m"},
		},
		{
			name:     "empty input",
			raw:      "",
			expected: nil,
		},
		{
			name:     "only separators",
			raw:      ", ,\n,",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTags(tt.raw)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(img, []byte("not a real png"), 0644); err != nil {
		t.Fatal(err)
	}

	tags := []string{"leela dog", "outdoors", "sunny day"}
	if err := WriteTags(img, tags); err != nil {
		t.Fatalf("WriteTags failed: %v", err)
	}

	got, err := ReadTags(img)
	if err != nil {
		t.Fatalf("ReadTags failed: %v", err)
	}
	if !reflect.DeepEqual(got, tags) {
		t.Errorf("Expected %v, got %v", tags, got)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "photo.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "leela dog, outdoors, sunny day" {
		t.Errorf("Unexpected sidecar content: %q", string(raw))
	}
}

func TestWriteEmptyClearsCaption(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(img, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := WriteTags(img, []string{"dog"}); err != nil {
		t.Fatal(err)
	}
	if err := WriteTags(img, nil); err != nil {
		t.Fatal(err)
	}

	got, err := ReadTags(img)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no tags after clearing, got %v", got)
	}
}

func TestReadMissingSidecar(t *testing.T) {
	dir := t.TempDir()
	got, err := ReadTags(filepath.Join(dir, "nothing.png"))
	if err != nil {
		t.Fatalf("Expected no error for missing sidecar, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no tags, got %v", got)
	}
}

func TestAddTag(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(img, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tags, err := AddTag(img, "dog")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tags, []string{"dog"}) {
		t.Errorf("Expected [dog], got %v", tags)
	}

	// Case-insensitive duplicate is not added
	tags, err = AddTag(img, "DOG")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tags, []string{"dog"}) {
		t.Errorf("Expected [dog], got %v", tags)
	}
}

func TestRemoveTag(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(img, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteTags(img, []string{"dog", "outdoors", "sunny"}); err != nil {
		t.Fatal(err)
	}

	tags, err := RemoveTag(img, "Outdoors")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tags, []string{"dog", "sunny"}) {
		t.Errorf("Expected [dog sunny], got %v", tags)
	}
}

func TestWithTrigger(t *testing.T) {
	tests := []struct {
		name     string
		trigger  string
		tags     []string
		expected []string
	}{
		{
			name:     "prepended when absent",
			trigger:  "leela",
			tags:     []string{"dog", "outdoors"},
			expected: []string{"leela", "dog", "outdoors"},
		},
		{
			name:     "already first",
			trigger:  "leela",
			tags:     []string{"leela", "dog"},
			expected: []string{"leela", "dog"},
		},
		{
			name:     "moved to front not duplicated",
			trigger:  "leela",
			tags:     []string{"dog", "Leela", "outdoors"},
			expected: []string{"leela", "dog", "outdoors"},
		},
		{
			name:     "empty trigger is a no-op",
			trigger:  "",
			tags:     []string{"dog"},
			expected: []string{"dog"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WithTrigger(tt.trigger, tt.tags)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestDeleteImage(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(img, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteTags(img, []string{"dog"}); err != nil {
		t.Fatal(err)
	}

	if err := DeleteImage(img); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}
	if _, err := os.Stat(img); !os.IsNotExist(err) {
		t.Error("Image still exists")
	}
	if _, err := os.Stat(filepath.Join(dir, "photo.txt")); !os.IsNotExist(err) {
		t.Error("Sidecar still exists")
	}
}
