package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ensemble/internal/orchestrator"
	"github.com/fyrsmithlabs/ensemble/internal/workflow"
)

func writeGarbage(t *testing.T, dir string) {
	t.Helper()
	path := filepath.Join(dir, uuid.NewString()+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
}

func rewrite(t *testing.T, store *Store, rec *Record) {
	t.Helper()
	data, err := json.MarshalIndent(rec, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.path(rec.SessionID), data, 0o644))
}

func testResult(task string, success bool) *orchestrator.RunResult {
	started := time.Now().Add(-time.Minute)
	return &orchestrator.RunResult{
		RunID:    uuid.NewString(),
		Task:     task,
		Workflow: "default",
		Iterations: []orchestrator.IterationRecord{
			{
				Iteration:   1,
				Steps:       []workflow.StepOutcome{{Agent: "codex", Role: "implement", Success: success, Output: "done"}},
				FinalOutput: "done",
			},
		},
		FinalOutput: "done",
		Success:     success,
		StartedAt:   started,
		CompletedAt: started.Add(30 * time.Second),
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	result := testResult("build a cache", true)
	id, err := store.Save(ctx, result)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, id)

	rec, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.SessionID)
	assert.Equal(t, "build a cache", rec.Result.Task)
	assert.True(t, rec.Result.Success)
	require.Len(t, rec.Result.Iterations, 1)
	assert.Equal(t, "done", rec.Result.Iterations[0].FinalOutput)
	assert.False(t, rec.SavedAt.IsZero())
}

func TestStore_SaveAssignsMissingID(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	result := testResult("task", true)
	result.RunID = ""

	id, err := store.Save(context.Background(), result)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestStore_LoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.Load(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RejectsNonUUIDID(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "../escape")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	first := testResult("first", true)
	_, err = store.Save(ctx, first)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	second := testResult("second", false)
	_, err = store.Save(ctx, second)
	require.NoError(t, err)

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "second", summaries[0].Task)
	assert.Equal(t, "first", summaries[1].Task)
	assert.False(t, summaries[0].Success)
	assert.Equal(t, 1, summaries[0].Iterations)
	assert.Equal(t, 30*time.Second, summaries[0].Duration)
}

func TestStore_ListSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Save(ctx, testResult("good", true))
	require.NoError(t, err)

	writeGarbage(t, dir)

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestStore_Delete(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	id, err := store.Save(ctx, testResult("task", true))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, id), ErrNotFound)
}

func TestStore_Prune(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	oldID, err := store.Save(ctx, testResult("old", true))
	require.NoError(t, err)
	newID, err := store.Save(ctx, testResult("new", true))
	require.NoError(t, err)

	// Backdate the first session's SavedAt.
	rec, err := store.Load(ctx, oldID)
	require.NoError(t, err)
	rec.SavedAt = time.Now().Add(-48 * time.Hour)
	rewrite(t, store, rec)

	removed, err := store.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Load(ctx, oldID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Load(ctx, newID)
	assert.NoError(t, err)
}
