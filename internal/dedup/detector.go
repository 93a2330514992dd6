package dedup

import (
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/captionforge/captionforge/internal/models"
	"github.com/captionforge/captionforge/internal/scanner"
)

// FindDuplicates fingerprints every image under root and groups byte
// identical files. Hashing fans out across a worker pool; a single
// unreadable file becomes an error entry without aborting the scan.
// Groups with fewer than two members are not reported.
func FindDuplicates(root string, workers int) (*models.DuplicateReport, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	paths, err := scanner.WalkImages(absRoot)
	if err != nil {
		return nil, err
	}

	slog.Info("Hashing images", "root", absRoot, "files", len(paths), "workers", workers)

	// Inserts from different workers are serialized by one mutex; the maps
	// are only read after every worker has joined.
	var mu sync.Mutex
	byHash := make(map[string][]string)
	var hashErrors []models.HashError

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, workers)

	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				rel = path
			}
			rel = strings.ReplaceAll(rel, string(filepath.Separator), "/")

			hash, err := HashFile(path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				hashErrors = append(hashErrors, models.HashError{Path: rel, Reason: err.Error()})
				return
			}
			byHash[hash] = append(byHash[hash], rel)
		}(path)
	}
	wg.Wait()

	report := &models.DuplicateReport{Errors: hashErrors}
	for hash, members := range byHash {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		report.Groups = append(report.Groups, models.DuplicateGroup{
			Fingerprint: hash,
			Paths:       members,
		})
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		return report.Groups[i].Paths[0] < report.Groups[j].Paths[0]
	})

	slog.Info("Duplicate scan complete", "groups", len(report.Groups), "errors", len(report.Errors))
	return report, nil
}
