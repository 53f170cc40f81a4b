package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ensemble/internal/agent"
	"github.com/fyrsmithlabs/ensemble/internal/config"
	"github.com/fyrsmithlabs/ensemble/internal/events"
)

func TestEngine_Execute_FoldsContext(t *testing.T) {
	var reviewSaw, refineSaw agent.TaskRequest

	implement := &mockAgent{
		name: "codex",
		kind: config.KindCodex,
		runFn: func(_ context.Context, task agent.TaskRequest) (*agent.Response, error) {
			return &agent.Response{
				Success:       true,
				Output:        "func Get(k string) {}",
				FilesModified: []string{"cache.go"},
			}, nil
		},
	}
	review := &mockAgent{
		name: "gemini",
		kind: config.KindGemini,
		runFn: func(_ context.Context, task agent.TaskRequest) (*agent.Response, error) {
			reviewSaw = task
			return &agent.Response{
				Success:     true,
				Output:      "missing error handling",
				Suggestions: []string{"return an error", "add a mutex"},
			}, nil
		},
	}
	refine := &mockAgent{
		name: "claude",
		kind: config.KindClaude,
		runFn: func(_ context.Context, task agent.TaskRequest) (*agent.Response, error) {
			refineSaw = task
			return &agent.Response{Success: true, Output: "refined"}, nil
		},
	}

	e := NewEngine(nil)
	e.SetSteps([]Step{
		{Agent: implement, Role: config.RoleImplement},
		{Agent: review, Role: config.RoleReview},
		{Agent: refine, Role: config.RoleRefine},
	})

	rc := &RunContext{Task: "build a cache", MaxIterations: 1}
	outcomes := e.Execute(context.Background(), rc)

	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.True(t, o.Success)
	}

	assert.Equal(t, "func Get(k string) {}", reviewSaw.Implementation)
	assert.Equal(t, []string{"cache.go"}, reviewSaw.Files)
	assert.Equal(t, "func Get(k string) {}", reviewSaw.PreviousOutput)

	assert.Equal(t, "missing error handling", refineSaw.Feedback)
	assert.Equal(t, "func Get(k string) {}", refineSaw.Implementation)
	assert.Equal(t, "missing error handling", refineSaw.PreviousOutput)

	assert.Equal(t, "refined", rc.PreviousOutput)
	assert.Equal(t, "claude", rc.PreviousAgent)
	assert.Equal(t, []string{"return an error", "add a mutex"}, rc.Suggestions)
}

func TestEngine_Execute_AgentErrorSkipsFold(t *testing.T) {
	implement := echoAgent("codex")
	broken := &mockAgent{
		name: "gemini",
		kind: config.KindGemini,
		runFn: func(context.Context, agent.TaskRequest) (*agent.Response, error) {
			return nil, errors.New("spawn failed")
		},
	}
	var lastSaw agent.TaskRequest
	last := &mockAgent{
		name: "claude",
		kind: config.KindClaude,
		runFn: func(_ context.Context, task agent.TaskRequest) (*agent.Response, error) {
			lastSaw = task
			return &agent.Response{Success: true, Output: "done"}, nil
		},
	}

	e := NewEngine(nil)
	e.SetSteps([]Step{
		{Agent: implement, Role: config.RoleImplement},
		{Agent: broken, Role: config.RoleReview},
		{Agent: last, Role: config.RoleRefine},
	})

	rc := &RunContext{Task: "task"}
	outcomes := e.Execute(context.Background(), rc)

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.Equal(t, "spawn failed", outcomes[1].Error)
	assert.True(t, outcomes[2].Success)

	// The failed step contributes nothing to the rolling context.
	assert.Equal(t, "codex: Implement the following: task", lastSaw.PreviousOutput)
	assert.Empty(t, lastSaw.Feedback)
}

func TestEngine_Execute_FailedResponseStillFolds(t *testing.T) {
	partial := &mockAgent{
		name: "codex",
		kind: config.KindCodex,
		runFn: func(context.Context, agent.TaskRequest) (*agent.Response, error) {
			return &agent.Response{Success: false, Output: "partial work", Error: "tool crashed"}, nil
		},
	}
	var saw agent.TaskRequest
	next := &mockAgent{
		name: "gemini",
		kind: config.KindGemini,
		runFn: func(_ context.Context, task agent.TaskRequest) (*agent.Response, error) {
			saw = task
			return &agent.Response{Success: true, Output: "reviewed"}, nil
		},
	}

	e := NewEngine(nil)
	e.SetSteps([]Step{
		{Agent: partial, Role: config.RoleImplement},
		{Agent: next, Role: config.RoleReview},
	})

	outcomes := e.Execute(context.Background(), &RunContext{Task: "task"})

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Success)
	assert.Equal(t, "tool crashed", outcomes[0].Error)

	// A response that reports failure still carries forward.
	assert.Equal(t, "partial work", saw.PreviousOutput)
	assert.Equal(t, "partial work", saw.Implementation)
}

func TestEngine_Execute_Repeatable(t *testing.T) {
	e := NewEngine(nil)
	e.SetSteps([]Step{
		{Agent: echoAgent("codex"), Role: config.RoleImplement},
		{Agent: echoAgent("gemini"), Role: config.RoleReview},
	})

	first := e.Execute(context.Background(), &RunContext{Task: "task"})
	second := e.Execute(context.Background(), &RunContext{Task: "task"})

	require.Len(t, second, len(first))
	for i := range first {
		first[i].Duration = 0
		second[i].Duration = 0
	}
	assert.Equal(t, first, second)
}

func TestEngine_Execute_Cancelled(t *testing.T) {
	a := echoAgent("codex")
	b := echoAgent("gemini")

	e := NewEngine(nil)
	e.SetSteps([]Step{
		{Agent: a, Role: config.RoleImplement},
		{Agent: b, Role: config.RoleReview},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := e.Execute(ctx, &RunContext{Task: "task"})

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.False(t, o.Success)
		assert.Equal(t, context.Canceled.Error(), o.Error)
	}
	assert.Zero(t, a.calls)
	assert.Zero(t, b.calls)
}

func TestEngine_Progress(t *testing.T) {
	e := NewEngine(nil)

	p := e.Progress()
	assert.Zero(t, p.TotalSteps)
	assert.Zero(t, p.Percent)

	e.SetSteps([]Step{
		{Agent: echoAgent("codex"), Role: config.RoleImplement},
		{Agent: echoAgent("gemini"), Role: config.RoleReview},
		{Agent: echoAgent("claude"), Role: config.RoleRefine},
		{Agent: echoAgent("claude"), Role: config.RoleTest},
	})
	p = e.Progress()
	assert.Equal(t, 0, p.CurrentStep)
	assert.Equal(t, 4, p.TotalSteps)

	e.Execute(context.Background(), &RunContext{Task: "task"})
	p = e.Progress()
	assert.Equal(t, 3, p.CurrentStep)
	assert.InDelta(t, 75.0, p.Percent, 0.01)
}

func TestEngine_Execute_EmitsStepEvents(t *testing.T) {
	sink := events.NewMemorySink()

	e := NewEngine(nil)
	e.SetSink(sink)
	e.SetSteps([]Step{
		{Agent: echoAgent("codex"), Role: config.RoleImplement},
		{Agent: &mockAgent{
			name: "gemini",
			kind: config.KindGemini,
			runFn: func(context.Context, agent.TaskRequest) (*agent.Response, error) {
				return nil, errors.New("spawn failed")
			},
		}, Role: config.RoleReview},
	})

	e.Execute(context.Background(), &RunContext{Task: "task"})

	started := sink.ByKind(events.KindStepStarted)
	require.Len(t, started, 2)
	assert.Equal(t, "codex", started[0].Agent)
	assert.Equal(t, config.RoleImplement, started[0].Role)

	completed := sink.ByKind(events.KindStepCompleted)
	require.Len(t, completed, 2)
	assert.True(t, completed[0].Success)
	assert.False(t, completed[1].Success)
	assert.Equal(t, "spawn failed", completed[1].Err)
}
