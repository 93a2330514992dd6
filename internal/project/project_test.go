package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/captionforge/captionforge/internal/captions"
	"github.com/captionforge/captionforge/internal/models"
	"github.com/captionforge/captionforge/internal/ratings"
)

type recordingNotifier struct {
	tagsChanged   []string
	ratingChanged []string
	removed       []string
}

func (n *recordingNotifier) TagsChanged(e *models.ImageEntry)   { n.tagsChanged = append(n.tagsChanged, e.ID) }
func (n *recordingNotifier) RatingChanged(e *models.ImageEntry) { n.ratingChanged = append(n.ratingChanged, e.ID) }
func (n *recordingNotifier) EntryRemoved(id string)             { n.removed = append(n.removed, id) }

func newProject(t *testing.T, names ...string) *Store {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(root, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestSetTagsPersistsAndNotifies(t *testing.T) {
	store := newProject(t, "cat.png")
	notifier := &recordingNotifier{}
	store.Subscribe(notifier)

	entry := store.Entries()[0]
	if err := store.SetTags(entry.ID, []string{"cat", "sitting"}); err != nil {
		t.Fatal(err)
	}

	// Sidecar on disk
	tags, err := captions.ReadTags(entry.Path)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags[0] != "cat" {
		t.Errorf("Unexpected persisted tags: %v", tags)
	}

	// In-memory entry updated
	got, _ := store.Get(entry.ID)
	if len(got.Tags) != 2 {
		t.Errorf("Expected 2 tags in memory, got %v", got.Tags)
	}

	if len(notifier.tagsChanged) != 1 || notifier.tagsChanged[0] != entry.ID {
		t.Errorf("Expected one TagsChanged for %s, got %v", entry.ID, notifier.tagsChanged)
	}
}

func TestEntriesAndGetReturnDetachedCopies(t *testing.T) {
	store := newProject(t, "a.png")
	snapshot := store.Entries()[0]

	if err := store.SetTags(snapshot.ID, []string{"dog"}); err != nil {
		t.Fatal(err)
	}

	// The snapshot taken before the mutation is unaffected by it.
	if snapshot.HasCaption() {
		t.Errorf("Snapshot changed after store mutation: %v", snapshot.Tags)
	}

	// Writing through a returned copy never reaches the store.
	got, _ := store.Get(snapshot.ID)
	got.Rating = models.RatingBad
	fresh, _ := store.Get(snapshot.ID)
	if fresh.Rating != models.RatingNone {
		t.Error("Mutating a returned copy leaked into the store")
	}
}

func TestNotifierReceivesUpdatedState(t *testing.T) {
	store := newProject(t, "a.png")
	var seen []string
	store.Subscribe(&captureNotifier{onTags: func(e *models.ImageEntry) {
		seen = e.Tags
	}})

	entry := store.Entries()[0]
	if err := store.SetTags(entry.ID, []string{"dog", "outdoors"}); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != "dog" {
		t.Errorf("Expected notifier to see the new tags, got %v", seen)
	}
}

type captureNotifier struct {
	onTags func(e *models.ImageEntry)
}

func (c *captureNotifier) TagsChanged(e *models.ImageEntry) {
	if c.onTags != nil {
		c.onTags(e)
	}
}
func (c *captureNotifier) RatingChanged(e *models.ImageEntry) {}
func (c *captureNotifier) EntryRemoved(id string)             {}

func TestSetTagsUnknownID(t *testing.T) {
	store := newProject(t, "cat.png")
	if err := store.SetTags("deadbeef", []string{"x"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSetRatingPersistsAcrossReopen(t *testing.T) {
	store := newProject(t, "cat.png")
	notifier := &recordingNotifier{}
	store.Subscribe(notifier)

	entry := store.Entries()[0]
	if err := store.SetRating(entry.ID, models.RatingGood); err != nil {
		t.Fatal(err)
	}
	if len(notifier.ratingChanged) != 1 {
		t.Errorf("Expected one RatingChanged, got %v", notifier.ratingChanged)
	}

	// A fresh store built from the same root sees the rating.
	reopened, err := Open(store.Root())
	if err != nil {
		t.Fatal(err)
	}
	got, ok := reopened.Get(entry.ID)
	if !ok {
		t.Fatal("Entry missing after reopen")
	}
	if got.Rating != models.RatingGood {
		t.Errorf("Expected rating good after reopen, got %s", got.Rating)
	}
}

func TestRemoveDeletesFilesAndNotifies(t *testing.T) {
	store := newProject(t, "cat.png", "dog.png")
	notifier := &recordingNotifier{}
	store.Subscribe(notifier)

	entry := store.Entries()[0]
	if err := store.SetTags(entry.ID, []string{"cat"}); err != nil {
		t.Fatal(err)
	}

	if err := store.Remove(entry.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(entry.Path); !os.IsNotExist(err) {
		t.Error("Expected image file removed")
	}
	if _, err := os.Stat(captions.SidecarPath(entry.Path)); !os.IsNotExist(err) {
		t.Error("Expected sidecar removed")
	}
	if _, ok := store.Get(entry.ID); ok {
		t.Error("Expected entry dropped from store")
	}
	if len(store.Entries()) != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", len(store.Entries()))
	}
	if len(notifier.removed) != 1 || notifier.removed[0] != entry.ID {
		t.Errorf("Expected one EntryRemoved for %s, got %v", entry.ID, notifier.removed)
	}
}

func TestClearAllTags(t *testing.T) {
	store := newProject(t, "a.png", "b.png", "c.png")
	for _, e := range store.Entries() {
		if err := store.SetTags(e.ID, []string{"tag"}); err != nil {
			t.Fatal(err)
		}
	}

	cleared, err := store.ClearAllTags()
	if err != nil {
		t.Fatal(err)
	}
	if cleared != 3 {
		t.Errorf("Expected 3 cleared, got %d", cleared)
	}
	for _, e := range store.Entries() {
		if e.HasCaption() {
			t.Errorf("Expected %s cleared, got %v", e.RelativePath, e.Tags)
		}
	}
}

func TestFilterByRating(t *testing.T) {
	store := newProject(t, "a.png", "b.png", "c.png")
	entries := store.Entries()
	if err := store.SetRating(entries[0].ID, models.RatingGood); err != nil {
		t.Fatal(err)
	}
	if err := store.SetRating(entries[1].ID, models.RatingBad); err != nil {
		t.Fatal(err)
	}

	good := store.FilterByRating([]models.Rating{models.RatingGood})
	if len(good) != 1 || good[0].ID != entries[0].ID {
		t.Errorf("Unexpected good filter result: %d entries", len(good))
	}

	all := store.FilterByRating(nil)
	if len(all) != 3 {
		t.Errorf("Expected empty filter to return all, got %d", len(all))
	}
}

func TestRatingNoneClearsStoredValue(t *testing.T) {
	store := newProject(t, "a.png")
	entry := store.Entries()[0]

	if err := store.SetRating(entry.ID, models.RatingNeedsEdit); err != nil {
		t.Fatal(err)
	}
	if err := store.SetRating(entry.ID, models.RatingNone); err != nil {
		t.Fatal(err)
	}

	ratingStore, err := ratings.Load(store.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(ratingStore.All()) != 0 {
		t.Errorf("Expected empty rating store, got %v", ratingStore.All())
	}
}
