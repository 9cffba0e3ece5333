package dagexec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/logger"
	"github.com/mellivora/etl-engine/internal/plugin"
	"github.com/mellivora/etl-engine/internal/state"
	"github.com/mellivora/etl-engine/internal/store"
)

type countingExtract struct{}

func (countingExtract) Extract(_ *plugin.Context) (core.Frame, error) {
	return core.NewRowFrame([]string{"v"}, []map[string]any{{"v": 1}}), nil
}

type failingExtract struct{}

func (failingExtract) Extract(_ *plugin.Context) (core.Frame, error) {
	return nil, errors.New("source unreachable")
}

func newDAGTestExecutor(t *testing.T) (*Executor, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	registry := plugin.New()
	registry.RegisterExtract("ok", func(plugin.Config) (plugin.Extract, error) { return countingExtract{}, nil })
	registry.RegisterExtract("broken", func(plugin.Config) (plugin.Extract, error) { return failingExtract{}, nil })
	log := logger.NewLogger(logger.WithQuiet())
	return NewExecutor(state.New(mem), mem, registry, log), mem
}

func onePipeline(id, plug string) *core.Pipeline {
	return &core.Pipeline{
		ID: id,
		Steps: []core.Step{
			{ID: "extract", Kind: core.StepExtract, Plugin: plug},
		},
	}
}

func TestExecuteSchedule_ParallelBatchesAllSucceed(t *testing.T) {
	exec, mem := newDAGTestExecutor(t)
	ctx := context.Background()

	require.NoError(t, mem.UpsertPipeline(ctx, onePipeline("pa", "ok")))
	require.NoError(t, mem.UpsertPipeline(ctx, onePipeline("pb", "ok")))
	require.NoError(t, mem.UpsertPipeline(ctx, onePipeline("pc", "ok")))

	schedule := &core.Schedule{
		ID: "sched1",
		DAG: []core.DAGNode{
			{ID: "a", PipelineID: "pa"},
			{ID: "b", PipelineID: "pb"},
			{ID: "c", PipelineID: "pc", DependsOn: []string{"a", "b"}},
		},
	}

	execution, err := exec.ExecuteSchedule(ctx, schedule, core.TriggerScheduled, nil)
	require.NoError(t, err)
	require.Equal(t, core.StatusSuccess, execution.Status)
}

func TestExecuteSchedule_DependencyFailurePropagates(t *testing.T) {
	exec, mem := newDAGTestExecutor(t)
	ctx := context.Background()

	require.NoError(t, mem.UpsertPipeline(ctx, onePipeline("pa", "broken")))
	require.NoError(t, mem.UpsertPipeline(ctx, onePipeline("pb", "ok")))

	schedule := &core.Schedule{
		ID: "sched2",
		DAG: []core.DAGNode{
			{ID: "a", PipelineID: "pa"},
			{ID: "b", PipelineID: "pb", DependsOn: []string{"a"}},
		},
	}

	execution, err := exec.ExecuteSchedule(ctx, schedule, core.TriggerScheduled, nil)
	require.NoError(t, err)
	require.Equal(t, core.StatusFailed, execution.Status)

	// b must never have produced a task: it was skipped, not executed.
	tasks := mem.Tasks()
	require.Len(t, tasks, 1, "only a's extract step should have recorded a task")
	ids := map[string]bool{}
	for _, tk := range tasks {
		ids[tk.NodeID] = true
	}
	require.True(t, ids["extract"], "a's step should have run and recorded a task")
}

func TestExecuteSchedule_CyclicDAGFailsExecution(t *testing.T) {
	exec, _ := newDAGTestExecutor(t)
	ctx := context.Background()

	schedule := &core.Schedule{
		ID: "sched3",
		DAG: []core.DAGNode{
			{ID: "a", PipelineID: "pa", DependsOn: []string{"b"}},
			{ID: "b", PipelineID: "pb", DependsOn: []string{"a"}},
		},
	}

	execution, err := exec.ExecuteSchedule(ctx, schedule, core.TriggerScheduled, nil)
	require.NoError(t, err)
	require.Equal(t, core.StatusFailed, execution.Status)
	require.NotEmpty(t, execution.ErrorMessage)
}

func TestExecutePipeline_Standalone(t *testing.T) {
	exec, mem := newDAGTestExecutor(t)
	ctx := context.Background()

	require.NoError(t, mem.UpsertPipeline(ctx, onePipeline("solo", "ok")))

	execution, err := exec.ExecutePipeline(ctx, "solo", core.TriggerManual, nil)
	require.NoError(t, err)
	require.Equal(t, core.StatusSuccess, execution.Status)
	require.Equal(t, "solo", execution.PipelineID)
}
