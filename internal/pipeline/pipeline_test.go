package pipeline

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

type fakeExtract struct{ rows []map[string]any }

func (f *fakeExtract) Extract(_ *plugin.Context) (core.Frame, error) {
	return core.NewRowFrame([]string{"v"}, f.rows), nil
}

type fakeTransform struct{ fail bool }

func (f *fakeTransform) Transform(_ *plugin.Context, in core.Frame) (core.Frame, error) {
	if f.fail {
		return nil, errors.New("boom")
	}
	rf := in.(*core.RowFrame)
	return core.NewRowFrame(rf.Columns, rf.Rows), nil
}

type fakeLoad struct{ written int }

func (f *fakeLoad) Load(_ *plugin.Context, in core.Frame) (int, error) {
	f.written = in.Len()
	return f.written, nil
}

func newTestExecutor(t *testing.T) (*Executor, *store.Memory, *plugin.Registry) {
	t.Helper()
	mem := store.NewMemory()
	registry := plugin.New()
	log := logger.NewLogger(logger.WithQuiet())
	return NewExecutor(state.New(mem), registry, log), mem, registry
}

func TestExecute_LinearPipelineRowCounts(t *testing.T) {
	exec, _, registry := newTestExecutor(t)

	rows := []map[string]any{{"v": 1}, {"v": 2}, {"v": 3}}
	registry.RegisterExtract("fake", func(plugin.Config) (plugin.Extract, error) {
		return &fakeExtract{rows: rows}, nil
	})
	load := &fakeLoad{}
	registry.RegisterLoad("fake", func(plugin.Config) (plugin.Load, error) {
		return load, nil
	})

	p := &core.Pipeline{
		ID: "p1",
		Steps: []core.Step{
			{ID: "extract", Kind: core.StepExtract, Plugin: "fake"},
			{ID: "load", Kind: core.StepLoad, Plugin: "fake", Input: "extract"},
		},
	}

	ctx := plugin.NewContext(context.Background(), "exec-1", nil)
	ok, err := exec.Execute(ctx, p)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, load.written)
}

func TestExecute_AbortsOnFirstFailure(t *testing.T) {
	exec, mem, registry := newTestExecutor(t)

	registry.RegisterExtract("fake", func(plugin.Config) (plugin.Extract, error) {
		return &fakeExtract{rows: []map[string]any{{"v": 1}}}, nil
	})
	registry.RegisterTransform("broken", func(plugin.Config) (plugin.Transform, error) {
		return &fakeTransform{fail: true}, nil
	})
	registry.RegisterLoad("fake", func(plugin.Config) (plugin.Load, error) {
		return &fakeLoad{}, nil
	})

	p := &core.Pipeline{
		ID: "p2",
		Steps: []core.Step{
			{ID: "extract", Kind: core.StepExtract, Plugin: "fake"},
			{ID: "transform", Kind: core.StepTransform, Plugin: "broken", Input: "extract"},
			{ID: "load", Kind: core.StepLoad, Plugin: "fake", Input: "transform"},
		},
	}

	ctx := plugin.NewContext(context.Background(), "exec-2", nil)
	ok, err := exec.Execute(ctx, p)
	require.NoError(t, err)
	require.False(t, ok)

	tasks := mem.Tasks()
	require.Len(t, tasks, 2, "load step must never have run after the transform failed")

	logs := mem.Logs()
	require.Len(t, logs, 1)
	require.Contains(t, logs[0].Message, "Step  failed")
}

func TestExecute_CycleDetected(t *testing.T) {
	exec, _, _ := newTestExecutor(t)

	p := &core.Pipeline{
		ID: "p3",
		Steps: []core.Step{
			{ID: "a", Kind: core.StepTransform, Plugin: "x", Input: "b", Output: "a"},
			{ID: "b", Kind: core.StepTransform, Plugin: "x", Input: "a", Output: "b"},
		},
	}

	ctx := plugin.NewContext(context.Background(), "exec-3", nil)
	_, err := exec.Execute(ctx, p)
	require.Error(t, err)
}

func TestExecute_InputResolutionFallsBackToMostRecentlyBound(t *testing.T) {
	exec, _, registry := newTestExecutor(t)

	registry.RegisterExtract("fake", func(plugin.Config) (plugin.Extract, error) {
		return &fakeExtract{rows: []map[string]any{{"v": 1}, {"v": 2}}}, nil
	})
	load := &fakeLoad{}
	registry.RegisterLoad("fake", func(plugin.Config) (plugin.Load, error) {
		return load, nil
	})

	// load declares no input: must pick up the most recently bound frame.
	p := &core.Pipeline{
		ID: "p4",
		Steps: []core.Step{
			{ID: "extract", Kind: core.StepExtract, Plugin: "fake"},
			{ID: "load", Kind: core.StepLoad, Plugin: "fake"},
		},
	}

	ctx := plugin.NewContext(context.Background(), "exec-4", nil)
	ok, err := exec.Execute(ctx, p)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, load.written)
}
