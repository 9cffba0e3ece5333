package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/store"
)

func TestCreateExecution_GeneratesUUIDAndPendingStatus(t *testing.T) {
	m := New(store.NewMemory())
	ctx := context.Background()

	e, err := m.CreateExecution(ctx, CreateExecutionParams{
		ScheduleID: "s1",
		Trigger:    core.TriggerScheduled,
		Params:     map[string]any{"x": 1},
	})
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)
	require.Equal(t, core.StatusPending, e.Status)
	require.False(t, e.CreatedAt.IsZero())
}

func TestExecutionLifecycle(t *testing.T) {
	mem := store.NewMemory()
	m := New(mem)
	ctx := context.Background()

	e, err := m.CreateExecution(ctx, CreateExecutionParams{Trigger: core.TriggerManual})
	require.NoError(t, err)

	require.NoError(t, m.StartExecution(ctx, e))
	require.Equal(t, core.StatusRunning, e.Status)
	require.NotNil(t, e.StartedAt)

	require.NoError(t, m.CompleteExecution(ctx, e, core.StatusSuccess, ""))
	require.Equal(t, core.StatusSuccess, e.Status)
	require.NotNil(t, e.FinishedAt)
	require.GreaterOrEqual(t, e.DurationMS, int64(0))

	stored, err := mem.GetExecution(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, core.StatusSuccess, stored.Status)
}

func TestCompleteExecution_CarriesErrorMessage(t *testing.T) {
	m := New(store.NewMemory())
	ctx := context.Background()

	e, err := m.CreateExecution(ctx, CreateExecutionParams{Trigger: core.TriggerManual})
	require.NoError(t, err)
	require.NoError(t, m.StartExecution(ctx, e))
	require.NoError(t, m.CompleteExecution(ctx, e, core.StatusFailed, "step x failed"))

	require.Equal(t, core.StatusFailed, e.Status)
	require.Equal(t, "step x failed", e.ErrorMessage)
}

func TestTaskLifecycle(t *testing.T) {
	mem := store.NewMemory()
	m := New(mem)
	ctx := context.Background()

	task, err := m.CreateTask(ctx, "e1", "node-a", "Node A")
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)
	require.Equal(t, core.StatusPending, task.Status)

	require.NoError(t, m.StartTask(ctx, task))
	require.Equal(t, core.StatusRunning, task.Status)
	require.NotNil(t, task.StartedAt)

	in, out := 10, 9
	require.NoError(t, m.CompleteTask(ctx, task, CompleteTaskParams{
		Status:     core.StatusSuccess,
		InputRows:  &in,
		OutputRows: &out,
	}))
	require.Equal(t, core.StatusSuccess, task.Status)
	require.Equal(t, 9, *task.OutputRows)

	stored := mem.Tasks()
	require.Len(t, stored, 1)
	require.Equal(t, core.StatusSuccess, stored[0].Status)
}

func TestAddLog(t *testing.T) {
	mem := store.NewMemory()
	m := New(mem)
	ctx := context.Background()

	require.NoError(t, m.AddLog(ctx, "e1", "t1", "INFO", "step completed", map[string]any{"rows": 5}))

	logs := mem.Logs()
	require.Len(t, logs, 1)
	require.Equal(t, "step completed", logs[0].Message)
	require.Equal(t, "t1", logs[0].TaskID)
}
