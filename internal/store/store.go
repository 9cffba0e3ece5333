// Package store is the metadata store gateway: persistence for
// pipelines, schedules, executions, tasks, and logs (spec.md §6).
package store

import (
	"context"

	"github.com/mellivora/etl-engine/internal/core"
)

// Store is the narrow persistence surface the engine depends on. The
// Postgres implementation in postgres.go is the production gateway;
// tests use the in-memory implementation in memory.go.
type Store interface {
	// Pipelines
	GetPipeline(ctx context.Context, id string) (*core.Pipeline, error)
	UpsertPipeline(ctx context.Context, p *core.Pipeline) error

	// Schedules
	GetSchedule(ctx context.Context, id string) (*core.Schedule, error)
	ListEnabledSchedules(ctx context.Context) ([]*core.Schedule, error)
	UpsertSchedule(ctx context.Context, s *core.Schedule) error
	UpdateLastRunAt(ctx context.Context, scheduleID string, at core.Time) error
	UpdateNextRunAt(ctx context.Context, scheduleID string, at core.Time) error

	// Executions
	CreateExecution(ctx context.Context, e *core.Execution) error
	UpdateExecution(ctx context.Context, e *core.Execution) error
	GetExecution(ctx context.Context, id string) (*core.Execution, error)

	// Tasks
	CreateTask(ctx context.Context, t *core.ExecutionTask) error
	UpdateTask(ctx context.Context, t *core.ExecutionTask) error

	// Logs
	AddLog(ctx context.Context, l *core.LogRecord) error
}
