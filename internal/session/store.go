// internal/session/store.go

// Package session persists run results as flat JSON files, one per
// run, guarded by a directory lock so concurrent processes cannot
// interleave writes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ensemble/internal/logging"
	"github.com/fyrsmithlabs/ensemble/internal/orchestrator"
)

// ErrNotFound reports a session id with no stored record.
var ErrNotFound = errors.New("session not found")

// lockRetry is the poll interval while waiting for the directory lock.
const lockRetry = 25 * time.Millisecond

// Record is one stored session: a run result plus storage metadata.
type Record struct {
	SessionID string                 `json:"session_id"`
	SavedAt   time.Time              `json:"saved_at"`
	Result    orchestrator.RunResult `json:"result"`
}

// Summary is the listing view of a stored session.
type Summary struct {
	SessionID  string        `json:"session_id"`
	Task       string        `json:"task"`
	Workflow   string        `json:"workflow"`
	Success    bool          `json:"success"`
	Iterations int           `json:"iterations"`
	Duration   time.Duration `json:"duration"`
	SavedAt    time.Time     `json:"saved_at"`
}

// Store reads and writes session files under one directory.
type Store struct {
	dir    string
	lock   *flock.Flock
	logger *logging.Logger
}

// NewStore creates the session directory if needed and returns a store
// over it.
func NewStore(dir string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.FromContext(context.Background())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &Store{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, ".lock")),
		logger: logger,
	}, nil
}

// Save stores the run result and returns its session id. A result
// without a run id gets a fresh one.
func (s *Store) Save(ctx context.Context, result *orchestrator.RunResult) (string, error) {
	id := result.RunID
	if id == "" {
		id = uuid.NewString()
	}
	if err := validID(id); err != nil {
		return "", err
	}

	rec := Record{SessionID: id, SavedAt: time.Now(), Result: *result}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding session %s: %w", id, err)
	}

	if err := s.withLock(ctx, func() error {
		return os.WriteFile(s.path(id), data, 0o644)
	}); err != nil {
		return "", err
	}

	s.logger.Debug(ctx, "session saved",
		zap.String("session", id),
		zap.String("workflow", result.Workflow),
	)
	return id, nil
}

// Load returns the stored record for id. Missing sessions report
// ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (*Record, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	var rec Record
	err := s.withRLock(ctx, func() error {
		data, err := os.ReadFile(s.path(id))
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%q: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("reading session %s: %w", id, err)
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decoding session %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List summarizes all stored sessions, newest first. Unreadable files
// are skipped, not fatal.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	var summaries []Summary
	err := s.withRLock(ctx, func() error {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			return fmt.Errorf("reading session directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
			if err != nil {
				s.logger.Warn(ctx, "skipping unreadable session",
					zap.String("file", entry.Name()), zap.Error(err))
				continue
			}
			var rec Record
			if err := json.Unmarshal(data, &rec); err != nil {
				s.logger.Warn(ctx, "skipping corrupt session",
					zap.String("file", entry.Name()), zap.Error(err))
				continue
			}
			summaries = append(summaries, Summary{
				SessionID:  rec.SessionID,
				Task:       rec.Result.Task,
				Workflow:   rec.Result.Workflow,
				Success:    rec.Result.Success,
				Iterations: len(rec.Result.Iterations),
				Duration:   rec.Result.Duration(),
				SavedAt:    rec.SavedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].SavedAt.After(summaries[j].SavedAt)
	})
	return summaries, nil
}

// Delete removes one stored session.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		err := os.Remove(s.path(id))
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%q: %w", id, ErrNotFound)
		}
		return err
	})
}

// Prune deletes sessions saved before the cutoff and reports how many
// were removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	summaries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, sum := range summaries {
		if sum.SavedAt.After(cutoff) {
			continue
		}
		if err := s.Delete(ctx, sum.SessionID); err != nil {
			return removed, err
		}
		removed++
	}

	s.logger.Info(ctx, "sessions pruned",
		zap.Int("removed", removed),
		zap.Duration("older_than", olderThan),
	)
	return removed, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// validID accepts uuid session ids only; everything else could escape
// the session directory.
func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session id %q: %w", id, err)
	}
	return nil
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("locking session directory: %w", err)
	}
	if !locked {
		return errors.New("session directory lock unavailable")
	}
	defer s.lock.Unlock()
	return fn()
}

func (s *Store) withRLock(ctx context.Context, fn func() error) error {
	locked, err := s.lock.TryRLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("locking session directory: %w", err)
	}
	if !locked {
		return errors.New("session directory lock unavailable")
	}
	defer s.lock.Unlock()
	return fn()
}
