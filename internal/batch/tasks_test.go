package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ensemble/internal/events"
)

func TestManager_CreateAssignsSequentialIDs(t *testing.T) {
	m := NewManager(nil)

	first := m.Create("first", nil)
	second := m.Create("second", map[string]string{"priority": "high"})

	assert.Equal(t, "task_1", first.ID)
	assert.Equal(t, "task_2", second.ID)
	assert.Equal(t, StatusPending, first.Status)
	assert.Equal(t, "high", second.Metadata["priority"])
	assert.False(t, first.CreatedAt.IsZero())
}

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	task := m.Create("build a cache", nil)

	require.NoError(t, m.Start(ctx, task.ID, "codex"))
	got, ok := m.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, StatusInProgress, got.Status)
	assert.Equal(t, "codex", got.Agent)
	assert.False(t, got.StartedAt.IsZero())

	require.NoError(t, m.Complete(ctx, task.ID, "done"))
	got, _ = m.Get(task.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "done", got.Result)
	assert.GreaterOrEqual(t, got.Duration(), time.Duration(0))
}

func TestManager_FailAndCancel(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	failed := m.Create("doomed", nil)
	require.NoError(t, m.Start(ctx, failed.ID, "codex"))
	require.NoError(t, m.Fail(ctx, failed.ID, "tool crashed"))

	cancelled := m.Create("abandoned", nil)
	require.NoError(t, m.Cancel(ctx, cancelled.ID))

	got, _ := m.Get(failed.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "tool crashed", got.Error)

	got, _ = m.Get(cancelled.ID)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestManager_UnknownTask(t *testing.T) {
	m := NewManager(nil)

	assert.Error(t, m.Start(context.Background(), "task_99", "codex"))
	_, ok := m.Get("task_99")
	assert.False(t, ok)
}

func TestManager_ByStatus(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	a := m.Create("a", nil)
	b := m.Create("b", nil)
	m.Create("c", nil)

	require.NoError(t, m.Start(ctx, a.ID, "codex"))
	require.NoError(t, m.Complete(ctx, a.ID, nil))
	require.NoError(t, m.Start(ctx, b.ID, "gemini"))

	pending := m.ByStatus(StatusPending)
	require.Len(t, pending, 1)
	assert.Equal(t, "c", pending[0].Description)

	assert.Len(t, m.ByStatus(StatusInProgress), 1)
	assert.Len(t, m.ByStatus(StatusCompleted), 1)
}

func TestManager_Statistics(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	stats := m.Statistics()
	assert.Zero(t, stats.Total)

	done := m.Create("done", nil)
	require.NoError(t, m.Start(ctx, done.ID, "codex"))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, m.Complete(ctx, done.ID, nil))

	failed := m.Create("failed", nil)
	require.NoError(t, m.Start(ctx, failed.ID, "gemini"))
	require.NoError(t, m.Fail(ctx, failed.ID, "boom"))

	m.Create("waiting", nil)

	stats = m.Statistics()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Positive(t, stats.AverageDuration)
}

func TestManager_ClearCompleted(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	done := m.Create("done", nil)
	require.NoError(t, m.Start(ctx, done.ID, "codex"))
	require.NoError(t, m.Complete(ctx, done.ID, nil))
	kept := m.Create("kept", nil)

	m.ClearCompleted()

	_, ok := m.Get(done.ID)
	assert.False(t, ok)
	_, ok = m.Get(kept.ID)
	assert.True(t, ok)

	// IDs keep counting after a partial clear.
	next := m.Create("next", nil)
	assert.Equal(t, "task_3", next.ID)
}

func TestManager_ClearAll(t *testing.T) {
	m := NewManager(nil)

	m.Create("a", nil)
	m.Create("b", nil)
	m.ClearAll()

	assert.Zero(t, m.Statistics().Total)
	assert.Equal(t, "task_1", m.Create("fresh", nil).ID)
}

func TestManager_EmitsTransitionEvents(t *testing.T) {
	sink := events.NewMemorySink()
	m := NewManager(nil)
	m.SetSink(sink)
	ctx := context.Background()

	task := m.Create("tracked", nil)
	require.NoError(t, m.Start(ctx, task.ID, "codex"))
	require.NoError(t, m.Complete(ctx, task.ID, nil))

	started := sink.ByKind(events.KindTaskStarted)
	require.Len(t, started, 1)
	assert.Equal(t, "codex", started[0].Agent)
	assert.Equal(t, task.ID, started[0].Detail)

	completed := sink.ByKind(events.KindTaskCompleted)
	require.Len(t, completed, 1)
	assert.True(t, completed[0].Success)
}
