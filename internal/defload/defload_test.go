package defload

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/store"
)

const pipelineYAML = `
kind: pipeline
pipeline:
  id: orders_etl
  name: Orders ETL
  version: 1
  steps:
    - id: extract
      kind: extract
      plugin: http
`

const scheduleYAML = `
kind: schedule
schedule:
  id: nightly
  name: Nightly Run
  cron_expr: "0 2 * * *"
  timezone: UTC
  enabled: true
  dag:
    - id: a
      pipeline_id: orders_etl
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile_Pipeline(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pipeline.yaml", pipelineYAML)

	mem := store.NewMemory()
	loader := New(mem)
	require.NoError(t, loader.LoadFile(context.Background(), path))

	p, err := mem.GetPipeline(context.Background(), "orders_etl")
	require.NoError(t, err)
	require.Equal(t, "Orders ETL", p.Name)
	require.Len(t, p.Steps, 1)
}

func TestLoadFile_Schedule(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "schedule.yaml", scheduleYAML)

	mem := store.NewMemory()
	loader := New(mem)
	require.NoError(t, loader.LoadFile(context.Background(), path))

	s, err := mem.GetSchedule(context.Background(), "nightly")
	require.NoError(t, err)
	require.True(t, s.Enabled)
	require.Len(t, s.DAG, 1)
}

const pipelineWithParamsYAML = `
kind: pipeline
pipeline:
  id: orders_etl_params
  name: Orders ETL
  version: 1
  parameters:
    - name: batch_size
      type: integer
      required: true
  steps:
    - id: extract
      kind: extract
      plugin: http
`

func TestLoadFile_PipelineRegistersParameterSchema(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pipeline.yaml", pipelineWithParamsYAML)

	mem := store.NewMemory()
	loader := New(mem)
	require.NoError(t, loader.LoadFile(context.Background(), path))

	require.NoError(t, core.ValidateParams("orders_etl_params", map[string]any{"batch_size": 100}))
	require.Error(t, core.ValidateParams("orders_etl_params", map[string]any{}))
}

func TestLoadFile_UnknownKind(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "kind: widget\n")

	loader := New(store.NewMemory())
	err := loader.LoadFile(context.Background(), path)
	require.Error(t, err)
}

func TestLoadGlob_LoadsAllMatchedFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "definitions")
	require.NoError(t, os.MkdirAll(sub, 0755))
	writeFile(t, sub, "pipeline.yaml", pipelineYAML)
	writeFile(t, sub, "schedule.yaml", scheduleYAML)

	mem := store.NewMemory()
	loader := New(mem)
	require.NoError(t, loader.LoadGlob(context.Background(), dir, "definitions/*.yaml"))

	_, err := mem.GetPipeline(context.Background(), "orders_etl")
	require.NoError(t, err)
	_, err = mem.GetSchedule(context.Background(), "nightly")
	require.NoError(t, err)
}
