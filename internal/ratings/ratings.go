package ratings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/captionforge/captionforge/internal/models"
)

// RatingsFile is the project-scoped rating store, kept at the project root.
const RatingsFile = ".ratings.json"

type ratingsData struct {
	Ratings map[string]string `json:"ratings"`
}

// Store persists image ratings keyed by forward-slash relative path.
// Absent keys default to RatingNone. Mutations rewrite the whole file
// atomically, so a crashed write never leaves a truncated store.
type Store struct {
	root string

	mu   sync.RWMutex
	data ratingsData
}

// Load reads the rating store for a project root. A missing store file
// yields an empty store, not an error.
func Load(root string) (*Store, error) {
	s := &Store{
		root: root,
		data: ratingsData{Ratings: make(map[string]string)},
	}

	raw, err := os.ReadFile(filepath.Join(root, RatingsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read ratings: %w", err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("failed to parse ratings: %w", err)
	}
	if s.data.Ratings == nil {
		s.data.Ratings = make(map[string]string)
	}
	return s, nil
}

// NormalizeKey converts a relative path into the store's key form:
// forward slashes, no leading separators.
func NormalizeKey(relativePath string) string {
	k := strings.ReplaceAll(relativePath, "\\", "/")
	return strings.TrimLeft(k, "/")
}

// Get returns the rating for a relative path, RatingNone when absent.
func (s *Store) Get(relativePath string) models.Rating {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.ParseRating(s.data.Ratings[NormalizeKey(relativePath)])
}

// Set records the rating for a relative path and persists the store.
// Setting RatingNone removes the entry.
func (s *Store) Set(relativePath string, rating models.Rating) error {
	if !rating.Valid() {
		return fmt.Errorf("%w: rating %q", models.ErrInvalidArgument, rating)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := NormalizeKey(relativePath)
	if rating == models.RatingNone {
		delete(s.data.Ratings, key)
	} else {
		s.data.Ratings[key] = string(rating)
	}
	return s.save()
}

// All returns a copy of every stored rating.
func (s *Store) All() map[string]models.Rating {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Rating, len(s.data.Ratings))
	for k, v := range s.data.Ratings {
		out[k] = models.ParseRating(v)
	}
	return out
}

func (s *Store) save() error {
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ratings: %w", err)
	}

	path := filepath.Join(s.root, RatingsFile)
	tmp, err := os.CreateTemp(s.root, ".ratings-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write ratings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace ratings: %w", err)
	}
	return nil
}
