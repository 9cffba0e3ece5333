// Package state is the thin persistence layer for execution/task
// lifecycle transitions, per spec.md §4.5. Every operation is
// synchronous with the store and performed in its own transaction;
// UUIDs are generated client-side.
package state

import (
	"context"

	"github.com/google/uuid"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/store"
)

// Manager wraps a store.Store with the execution/task/log lifecycle
// operations the executors call.
type Manager struct {
	Store store.Store
}

// New returns a Manager backed by s.
func New(s store.Store) *Manager {
	return &Manager{Store: s}
}

// CreateExecutionParams carries the optional schedule/pipeline identity
// an execution is created for, plus its trigger and params.
type CreateExecutionParams struct {
	ScheduleID   string
	ScheduleName string
	PipelineID   string
	PipelineName string
	Trigger      core.Trigger
	Params       map[string]any
}

// CreateExecution inserts a new pending Execution with a fresh UUID.
func (m *Manager) CreateExecution(ctx context.Context, p CreateExecutionParams) (*core.Execution, error) {
	e := &core.Execution{
		ID:           uuid.NewString(),
		ScheduleID:   p.ScheduleID,
		ScheduleName: p.ScheduleName,
		PipelineID:   p.PipelineID,
		PipelineName: p.PipelineName,
		Status:       core.StatusPending,
		Trigger:      p.Trigger,
		Params:       p.Params,
		CreatedAt:    core.Now(),
	}
	if err := m.Store.CreateExecution(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// StartExecution transitions e to running and stamps started_at.
func (m *Manager) StartExecution(ctx context.Context, e *core.Execution) error {
	now := core.Now()
	e.Status = core.StatusRunning
	e.StartedAt = &now
	return m.Store.UpdateExecution(ctx, e)
}

// CompleteExecution transitions e to a terminal status, stamping
// finished_at and computing duration per spec.md §3's invariant
// (duration = finished_at - started_at in ms, 0 if started_at absent).
func (m *Manager) CompleteExecution(ctx context.Context, e *core.Execution, status core.Status, errMsg string) error {
	now := core.Now()
	e.Status = status
	e.FinishedAt = &now
	e.DurationMS = core.DurationMillis(e.StartedAt, e.FinishedAt)
	e.ErrorMessage = errMsg
	return m.Store.UpdateExecution(ctx, e)
}

// CreateTask inserts a new pending ExecutionTask with a fresh UUID.
func (m *Manager) CreateTask(ctx context.Context, executionID, nodeID, nodeName string) (*core.ExecutionTask, error) {
	t := &core.ExecutionTask{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		NodeID:      nodeID,
		NodeName:    nodeName,
		Status:      core.StatusPending,
	}
	if err := m.Store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// StartTask transitions t to running and stamps started_at.
func (m *Manager) StartTask(ctx context.Context, t *core.ExecutionTask) error {
	now := core.Now()
	t.Status = core.StatusRunning
	t.StartedAt = &now
	return m.Store.UpdateTask(ctx, t)
}

// CompleteTaskParams carries the optional row counts and error a task
// finishes with.
type CompleteTaskParams struct {
	Status     core.Status
	InputRows  *int
	OutputRows *int
	Error      string
}

// CompleteTask transitions t to a terminal status and stamps finished_at.
func (m *Manager) CompleteTask(ctx context.Context, t *core.ExecutionTask, p CompleteTaskParams) error {
	now := core.Now()
	t.Status = p.Status
	t.FinishedAt = &now
	t.InputRows = p.InputRows
	t.OutputRows = p.OutputRows
	t.Error = p.Error
	return m.Store.UpdateTask(ctx, t)
}

// AddLog appends a log record for the execution, optionally scoped to a
// task.
func (m *Manager) AddLog(ctx context.Context, executionID, taskID, level, message string, metadata map[string]any) error {
	return m.Store.AddLog(ctx, &core.LogRecord{
		ExecutionID: executionID,
		TaskID:      taskID,
		Level:       level,
		Message:     message,
		Metadata:    metadata,
		CreatedAt:   core.Now(),
	})
}
