package project

import (
	"fmt"
	"sync"

	"github.com/captionforge/captionforge/internal/captions"
	"github.com/captionforge/captionforge/internal/models"
	"github.com/captionforge/captionforge/internal/ratings"
	"github.com/captionforge/captionforge/internal/scanner"
)

// Notifier receives discrete mutation events so external caches (a UI's
// reactive grid, for instance) can apply changes without re-querying the
// whole project.
type Notifier interface {
	TagsChanged(entry *models.ImageEntry)
	RatingChanged(entry *models.ImageEntry)
	EntryRemoved(id string)
}

// Store holds the authoritative in-memory project list. Disk is the
// durable source of truth: every mutation persists first and updates the
// in-memory entry only after the write succeeded.
type Store struct {
	root    string
	ratings *ratings.Store

	mu       sync.RWMutex
	entries  []*models.ImageEntry
	byID     map[string]*models.ImageEntry
	notifier Notifier
}

// Open scans a project root and returns its store.
func Open(root string) (*Store, error) {
	entries, err := scanner.Scan(root)
	if err != nil {
		return nil, err
	}
	ratingStore, err := ratings.Load(root)
	if err != nil {
		return nil, err
	}

	s := &Store{
		root:    root,
		ratings: ratingStore,
		entries: entries,
		byID:    make(map[string]*models.ImageEntry, len(entries)),
	}
	for _, e := range entries {
		s.byID[e.ID] = e
	}
	return s, nil
}

// Subscribe registers the notifier receiving mutation events.
func (s *Store) Subscribe(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Root returns the project root path.
func (s *Store) Root() string {
	return s.root
}

// Entries returns a snapshot of the current entry list. The returned
// structs are copies taken under the lock; callers can hold or encode
// them while mutations continue.
func (s *Store) Entries() []*models.ImageEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ImageEntry, len(s.entries))
	for i, e := range s.entries {
		c := *e
		out[i] = &c
	}
	return out
}

// Get looks up an entry by id, returning a copy. Mutations go through the
// store, never through the returned struct.
func (s *Store) Get(id string) (*models.ImageEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	c := *e
	return &c, true
}

// live returns the stored entry itself, for mutation under the store's
// discipline.
func (s *Store) live(id string) (*models.ImageEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	return e, ok
}

// SetTags writes the entry's caption sidecar and, on success, updates the
// in-memory entry and emits TagsChanged.
func (s *Store) SetTags(id string, tags []string) error {
	e, ok := s.live(id)
	if !ok {
		return fmt.Errorf("%w: image %s", models.ErrNotFound, id)
	}
	if err := captions.WriteTags(e.Path, tags); err != nil {
		return err
	}
	s.applyTags(e, tags)
	return nil
}

// applyTags records already-persisted tags in memory. The batch
// orchestrator uses this as its OnTagsWritten hook. Subscribers get a
// copy snapshotted under the lock.
func (s *Store) applyTags(e *models.ImageEntry, tags []string) {
	s.mu.Lock()
	e.Tags = tags
	c := *e
	n := s.notifier
	s.mu.Unlock()
	if n != nil {
		n.TagsChanged(&c)
	}
}

// ApplyTags reflects tags that were persisted outside the store (batch
// captioning) into the in-memory entry.
func (s *Store) ApplyTags(entry *models.ImageEntry, tags []string) {
	if e, ok := s.live(entry.ID); ok {
		s.applyTags(e, tags)
	}
}

// SetRating persists the rating and updates the in-memory entry.
func (s *Store) SetRating(id string, rating models.Rating) error {
	e, ok := s.live(id)
	if !ok {
		return fmt.Errorf("%w: image %s", models.ErrNotFound, id)
	}
	if err := s.ratings.Set(e.RelativePath, rating); err != nil {
		return err
	}

	s.mu.Lock()
	e.Rating = rating
	c := *e
	n := s.notifier
	s.mu.Unlock()
	if n != nil {
		n.RatingChanged(&c)
	}
	return nil
}

// Remove deletes the image and its sidecar from disk, then drops the
// entry from the list.
func (s *Store) Remove(id string) error {
	e, ok := s.live(id)
	if !ok {
		return fmt.Errorf("%w: image %s", models.ErrNotFound, id)
	}
	if err := captions.DeleteImage(e.Path); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.byID, id)
	for i, cur := range s.entries {
		if cur.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	n := s.notifier
	s.mu.Unlock()
	if n != nil {
		n.EntryRemoved(id)
	}
	return nil
}

// ClearAllTags empties every entry's caption, returning how many were
// cleared. Stops at the first write failure.
func (s *Store) ClearAllTags() (int, error) {
	cleared := 0
	for _, e := range s.Entries() {
		if err := s.SetTags(e.ID, nil); err != nil {
			return cleared, err
		}
		cleared++
	}
	return cleared, nil
}

// FilterByRating returns the entries carrying one of the given ratings;
// an empty filter returns every entry.
func (s *Store) FilterByRating(wanted []models.Rating) []*models.ImageEntry {
	entries := s.Entries()
	if len(wanted) == 0 {
		return entries
	}
	set := make(map[models.Rating]bool, len(wanted))
	for _, r := range wanted {
		set[r] = true
	}
	var out []*models.ImageEntry
	for _, e := range entries {
		if set[e.Rating] {
			out = append(out, e)
		}
	}
	return out
}
