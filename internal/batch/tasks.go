// internal/batch/tasks.go
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ensemble/internal/events"
	"github.com/fyrsmithlabs/ensemble/internal/logging"
)

// Status is a task lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Task is one tracked unit of work. Values returned by the Manager are
// copies; transitions go through the Manager.
type Task struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Status      Status            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   time.Time         `json:"started_at,omitempty"`
	CompletedAt time.Time         `json:"completed_at,omitempty"`
	Agent       string            `json:"assigned_agent,omitempty"`
	Result      any               `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Duration returns how long the task ran, zero while unfinished.
func (t Task) Duration() time.Duration {
	if t.StartedAt.IsZero() || t.CompletedAt.IsZero() {
		return 0
	}
	return t.CompletedAt.Sub(t.StartedAt)
}

// Statistics summarizes the manager's task population.
type Statistics struct {
	Total           int           `json:"total_tasks"`
	Pending         int           `json:"pending"`
	InProgress      int           `json:"in_progress"`
	Completed       int           `json:"completed"`
	Failed          int           `json:"failed"`
	Cancelled       int           `json:"cancelled"`
	AverageDuration time.Duration `json:"average_duration"`
}

// Manager tracks task lifecycle records. Safe for concurrent use;
// batch workers report transitions while other goroutines inspect.
type Manager struct {
	mu      sync.Mutex
	tasks   map[string]*Task
	order   []string
	counter int

	logger *logging.Logger
	sink   events.Sink
}

// NewManager creates an empty task manager.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.FromContext(context.Background())
	}
	return &Manager{
		tasks:  make(map[string]*Task),
		logger: logger,
	}
}

// SetSink attaches an event sink notified on task transitions.
func (m *Manager) SetSink(sink events.Sink) {
	m.sink = sink
}

// Create registers a new pending task and returns its snapshot.
func (m *Manager) Create(description string, metadata map[string]string) Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counter++
	t := &Task{
		ID:          fmt.Sprintf("task_%d", m.counter),
		Description: description,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
		Metadata:    metadata,
	}
	m.tasks[t.ID] = t
	m.order = append(m.order, t.ID)

	m.logger.Debug(context.Background(), "task created", zap.String("task", t.ID))
	return *t
}

// Start marks the task in progress and records the assigned agent.
func (m *Manager) Start(ctx context.Context, id, agent string) error {
	return m.transition(ctx, id, func(t *Task) {
		t.Status = StatusInProgress
		t.StartedAt = time.Now()
		t.Agent = agent
	}, events.Event{Kind: events.KindTaskStarted, Agent: agent})
}

// Complete marks the task completed with its result.
func (m *Manager) Complete(ctx context.Context, id string, result any) error {
	return m.transition(ctx, id, func(t *Task) {
		t.Status = StatusCompleted
		t.CompletedAt = time.Now()
		t.Result = result
	}, events.Event{Kind: events.KindTaskCompleted, Success: true})
}

// Fail marks the task failed with its error text.
func (m *Manager) Fail(ctx context.Context, id, errText string) error {
	return m.transition(ctx, id, func(t *Task) {
		t.Status = StatusFailed
		t.CompletedAt = time.Now()
		t.Error = errText
	}, events.Event{Kind: events.KindTaskCompleted, Err: errText})
}

// Cancel marks the task cancelled.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	return m.transition(ctx, id, func(t *Task) {
		t.Status = StatusCancelled
		t.CompletedAt = time.Now()
	}, events.Event{Kind: events.KindTaskCompleted, Err: string(StatusCancelled)})
}

func (m *Manager) transition(ctx context.Context, id string, apply func(*Task), ev events.Event) error {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown task %q", id)
	}
	apply(t)
	status := t.Status
	agent := t.Agent
	m.mu.Unlock()

	if ev.Agent == "" {
		ev.Agent = agent
	}
	ev.Detail = id
	events.Emit(ctx, m.sink, ev)
	m.logger.Debug(ctx, "task transition",
		zap.String("task", id),
		zap.String("status", string(status)),
	)
	return nil
}

// Get returns a snapshot of the task.
func (m *Manager) Get(id string) (Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// ByStatus returns snapshots of tasks in the given state, in creation
// order.
func (m *Manager) ByStatus(status Status) []Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Task, 0)
	for _, id := range m.order {
		if t := m.tasks[id]; t != nil && t.Status == status {
			out = append(out, *t)
		}
	}
	return out
}

// Statistics summarizes all tracked tasks. AverageDuration covers
// completed tasks only.
func (m *Manager) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats Statistics
	var total time.Duration
	var timed int

	for _, t := range m.tasks {
		stats.Total++
		switch t.Status {
		case StatusPending:
			stats.Pending++
		case StatusInProgress:
			stats.InProgress++
		case StatusCompleted:
			stats.Completed++
			if d := t.Duration(); d > 0 {
				total += d
				timed++
			}
		case StatusFailed:
			stats.Failed++
		case StatusCancelled:
			stats.Cancelled++
		}
	}
	if timed > 0 {
		stats.AverageDuration = total / time.Duration(timed)
	}
	return stats
}

// ClearCompleted drops completed tasks, keeping everything else.
func (m *Manager) ClearCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.order[:0]
	for _, id := range m.order {
		if t := m.tasks[id]; t != nil && t.Status == StatusCompleted {
			delete(m.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}

// ClearAll drops every task and resets the id counter.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = make(map[string]*Task)
	m.order = nil
	m.counter = 0
}
