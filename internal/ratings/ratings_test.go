package ratings

import (
	"errors"
	"testing"

	"github.com/captionforge/captionforge/internal/models"
)

func TestMissingStoreDefaultsToNone(t *testing.T) {
	store, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := store.Get("some/image.png"); got != models.RatingNone {
		t.Errorf("Expected none, got %s", got)
	}
}

func TestSetGetRoundtrip(t *testing.T) {
	root := t.TempDir()
	store, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Set("sub/image.png", models.RatingGood); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := store.Get("sub/image.png"); got != models.RatingGood {
		t.Errorf("Expected good, got %s", got)
	}

	// Survives a reload, as after a process restart
	reloaded, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Get("sub/image.png"); got != models.RatingGood {
		t.Errorf("Expected good after reload, got %s", got)
	}
}

func TestSetNoneRemovesEntry(t *testing.T) {
	root := t.TempDir()
	store, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Set("a.png", models.RatingBad); err != nil {
		t.Fatal(err)
	}
	if err := store.Set("a.png", models.RatingNone); err != nil {
		t.Fatal(err)
	}

	if len(store.All()) != 0 {
		t.Errorf("Expected empty store, got %v", store.All())
	}
}

func TestInvalidRatingRejected(t *testing.T) {
	store, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	err = store.Set("a.png", models.Rating("excellent"))
	if !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{
			name:     "backslashes converted",
			in:       `sub\image.png`,
			expected: "sub/image.png",
		},
		{
			name:     "leading separators trimmed",
			in:       "/sub/image.png",
			expected: "sub/image.png",
		},
		{
			name:     "plain path unchanged",
			in:       "image.png",
			expected: "image.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.in); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
