package management

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/cronsched"
	"github.com/mellivora/etl-engine/internal/dagexec"
	"github.com/mellivora/etl-engine/internal/logger"
	"github.com/mellivora/etl-engine/internal/plugin"
	"github.com/mellivora/etl-engine/internal/state"
	"github.com/mellivora/etl-engine/internal/store"
)

type echoExtract struct{}

func (echoExtract) Extract(_ *plugin.Context) (core.Frame, error) {
	return core.NewRowFrame([]string{"v"}, []map[string]any{{"v": 1}}), nil
}

func TestService_ListPlugins(t *testing.T) {
	registry := plugin.New()
	registry.RegisterExtract("echo", func(plugin.Config) (plugin.Extract, error) { return echoExtract{}, nil })

	mem := store.NewMemory()
	log := logger.NewLogger(logger.WithQuiet())
	exec := dagexec.NewExecutor(state.New(mem), mem, registry, log)
	sched := cronsched.New(mem, exec, log, cronsched.Config{Enabled: true, PollInterval: time.Hour})

	svc := New(registry, sched, exec)
	plugins := svc.ListPlugins()
	require.Contains(t, plugins["extract"], "echo")
}

func TestService_TriggerPipeline(t *testing.T) {
	mem := store.NewMemory()
	registry := plugin.New()
	registry.RegisterExtract("echo", func(plugin.Config) (plugin.Extract, error) { return echoExtract{}, nil })
	log := logger.NewLogger(logger.WithQuiet())
	exec := dagexec.NewExecutor(state.New(mem), mem, registry, log)
	sched := cronsched.New(mem, exec, log, cronsched.Config{Enabled: true, PollInterval: time.Hour})
	svc := New(registry, sched, exec)

	ctx := context.Background()
	require.NoError(t, mem.UpsertPipeline(ctx, &core.Pipeline{
		ID: "p1",
		Steps: []core.Step{
			{ID: "extract", Kind: core.StepExtract, Plugin: "echo"},
		},
	}))

	execution, err := svc.TriggerPipeline(ctx, "p1", nil)
	require.NoError(t, err)
	require.Equal(t, core.StatusSuccess, execution.Status)
}

func TestService_ListActiveSchedulesEmpty(t *testing.T) {
	mem := store.NewMemory()
	registry := plugin.New()
	log := logger.NewLogger(logger.WithQuiet())
	exec := dagexec.NewExecutor(state.New(mem), mem, registry, log)
	sched := cronsched.New(mem, exec, log, cronsched.Config{Enabled: true, PollInterval: time.Hour})
	svc := New(registry, sched, exec)

	require.Empty(t, svc.ListActiveSchedules())
}
