// internal/cliexec/tracker.go
package cliexec

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Snapshot maps absolute file paths to modification times.
type Snapshot map[string]time.Time

// Tracker detects files created or modified under a workspace
// directory by comparing mtime snapshots taken around a run.
// Deletions are not reported: a path present before and absent after
// simply drops out of the comparison.
type Tracker struct {
	dir string
}

// NewTracker creates a tracker rooted at dir.
func NewTracker(dir string) *Tracker {
	return &Tracker{dir: dir}
}

// Snapshot records the mtime of every regular file under the root.
// Unreadable entries are skipped; only a missing root is an error.
func (t *Tracker) Snapshot() (Snapshot, error) {
	if _, err := os.Stat(t.dir); err != nil {
		return nil, &ResourceError{Op: "snapshot workspace", Path: t.dir, Err: err}
	}

	snap := make(Snapshot)
	_ = filepath.WalkDir(t.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		snap[path] = info.ModTime()
		return nil
	})
	return snap, nil
}

// Modified rescans the root and returns, in lexical order, every file
// that is new since before or whose mtime strictly increased.
func (t *Tracker) Modified(before Snapshot) ([]string, error) {
	after, err := t.Snapshot()
	if err != nil {
		return nil, err
	}

	modified := make([]string, 0)
	// WalkDir visits lexically, and Snapshot preserves that order through
	// a fresh walk here
	_ = filepath.WalkDir(t.dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		mtime, ok := after[path]
		if !ok {
			return nil
		}
		prev, existed := before[path]
		if !existed || mtime.After(prev) {
			modified = append(modified, path)
		}
		return nil
	})
	return modified, nil
}
