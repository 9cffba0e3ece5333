// Package dagexec runs a Schedule's DAG of pipeline nodes, per
// spec.md §4.2: batches of independent nodes run concurrently, batches
// themselves run in dependency order, and a node whose dependency
// failed is skipped rather than attempted.
package dagexec

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dario.cat/mergo"
	"golang.org/x/sync/errgroup"

	"github.com/mellivora/etl-engine/internal/apperr"
	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/logger"
	"github.com/mellivora/etl-engine/internal/pipeline"
	"github.com/mellivora/etl-engine/internal/plugin"
	"github.com/mellivora/etl-engine/internal/state"
	"github.com/mellivora/etl-engine/internal/store"
)

// Executor runs Schedules (as DAGs of pipeline nodes) and standalone
// Pipelines, sharing one pipeline.Executor and state.Manager.
type Executor struct {
	state    *state.Manager
	store    store.Store
	pipeline *pipeline.Executor
	log      logger.Logger
}

// NewExecutor builds a DAG Executor.
func NewExecutor(s *state.Manager, st store.Store, registry *plugin.Registry, log logger.Logger) *Executor {
	return &Executor{
		state:    s,
		store:    st,
		pipeline: pipeline.NewExecutor(s, registry, log),
		log:      log,
	}
}

// ExecuteSchedule runs every node of schedule.DAG, in dependency-ordered
// concurrent batches, and returns the created Execution.
func (e *Executor) ExecuteSchedule(ctx context.Context, schedule *core.Schedule, trigger core.Trigger, params map[string]any) (*core.Execution, error) {
	execution, err := e.state.CreateExecution(ctx, state.CreateExecutionParams{
		ScheduleID:   schedule.ID,
		ScheduleName: schedule.Name,
		Trigger:      trigger,
		Params:       params,
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("starting schedule execution", "schedule_id", schedule.ID, "schedule_name", schedule.Name, "execution_id", execution.ID)

	if err := e.state.StartExecution(ctx, execution); err != nil {
		return execution, err
	}

	batches, err := batchesFor(schedule.DAG)
	if err != nil {
		_ = e.state.CompleteExecution(ctx, execution, core.StatusFailed, err.Error())
		return execution, nil
	}

	results := map[string]bool{}
	for _, batch := range batches {
		if err := e.runBatch(ctx, batch, execution, params, results); err != nil {
			_ = e.state.CompleteExecution(ctx, execution, core.StatusFailed, err.Error())
			return execution, nil
		}
	}

	allSuccess := true
	for _, ok := range results {
		if !ok {
			allSuccess = false
			break
		}
	}

	final := core.StatusSuccess
	if !allSuccess {
		final = core.StatusFailed
	}
	if err := e.state.CompleteExecution(ctx, execution, final, ""); err != nil {
		return execution, err
	}

	e.log.Info("schedule execution completed", "execution_id", execution.ID, "status", final)
	return execution, nil
}

// ExecutePipeline runs a single pipeline outside of any schedule's DAG.
func (e *Executor) ExecutePipeline(ctx context.Context, pipelineID string, trigger core.Trigger, params map[string]any) (*core.Execution, error) {
	p, err := e.store.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}

	execution, err := e.state.CreateExecution(ctx, state.CreateExecutionParams{
		PipelineID:   p.ID,
		PipelineName: p.Name,
		Trigger:      trigger,
		Params:       params,
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("starting pipeline execution", "pipeline_id", pipelineID, "execution_id", execution.ID)

	if err := e.state.StartExecution(ctx, execution); err != nil {
		return execution, err
	}

	if err := core.ValidateParams(p.ID, params); err != nil {
		_ = e.state.CompleteExecution(ctx, execution, core.StatusFailed, err.Error())
		return execution, nil
	}

	pctx := plugin.NewContext(ctx, execution.ID, params)
	success, err := e.pipeline.Execute(pctx, p)
	if err != nil {
		_ = e.state.CompleteExecution(ctx, execution, core.StatusFailed, err.Error())
		return execution, nil
	}

	final := core.StatusSuccess
	if !success {
		final = core.StatusFailed
	}
	if err := e.state.CompleteExecution(ctx, execution, final, ""); err != nil {
		return execution, err
	}
	return execution, nil
}

// runBatch executes one level of independent DAG nodes concurrently,
// skipping any node whose dependency did not succeed. Each goroutine
// writes only to its own slot in outcomes; results is merged back into
// the shared map after g.Wait(), once every goroutine in the batch has
// returned, so no goroutine ever reads or writes results concurrently
// with another.
func (e *Executor) runBatch(ctx context.Context, batch []core.DAGNode, execution *core.Execution, params map[string]any, results map[string]bool) error {
	g, gctx := errgroup.WithContext(ctx)

	type outcome struct {
		id string
		ok bool
	}
	outcomes := make([]outcome, len(batch))

	for i, node := range batch {
		i, node := i, node

		depsOK := true
		for _, dep := range node.DependsOn {
			if !results[dep] {
				depsOK = false
				break
			}
		}
		if !depsOK {
			e.log.Warn("skipping node due to failed dependency", "node_id", node.ID)
			outcomes[i] = outcome{id: node.ID, ok: false}
			continue
		}

		g.Go(func() error {
			ok := e.executeNode(gctx, node, execution, params)
			outcomes[i] = outcome{id: node.ID, ok: ok}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, o := range outcomes {
		results[o.id] = o.ok
	}
	return nil
}

// executeNode loads the node's pipeline, merges params (node params win
// per spec.md §4.2 step 4), and runs it under the node's timeout.
func (e *Executor) executeNode(ctx context.Context, node core.DAGNode, execution *core.Execution, params map[string]any) bool {
	p, err := e.store.GetPipeline(ctx, node.PipelineID)
	if err != nil {
		e.log.Error("pipeline not found", "pipeline_id", node.PipelineID)
		return false
	}

	merged := map[string]any{}
	for k, v := range params {
		merged[k] = v
	}
	if err := mergo.Merge(&merged, node.Params, mergo.WithOverride); err != nil {
		e.log.Error("param merge failed", "node_id", node.ID, "error", err.Error())
		return false
	}

	if err := core.ValidateParams(p.ID, merged); err != nil {
		e.log.Error("param validation failed", "node_id", node.ID, "error", err.Error())
		return false
	}

	nodeCtx, cancel := context.WithTimeout(ctx, time.Duration(node.Timeout())*time.Second)
	defer cancel()

	pctx := plugin.NewContext(nodeCtx, execution.ID, merged)

	done := make(chan struct {
		ok  bool
		err error
	}, 1)
	go func() {
		ok, err := e.pipeline.Execute(pctx, p)
		done <- struct {
			ok  bool
			err error
		}{ok, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			e.log.Error("node execution error", "node_id", node.ID, "error", r.err.Error())
			return false
		}
		return r.ok
	case <-nodeCtx.Done():
		e.log.Error("node timeout", "node_id", node.ID, "timeout", node.Timeout())
		return false
	}
}

// batchesFor partitions a DAG into dependency-ordered levels using
// Kahn's algorithm, breaking ties by ascending node id for determinism,
// and reports apperr.InvalidDAG on a cycle.
func batchesFor(dag []core.DAGNode) ([][]core.DAGNode, error) {
	byID := make(map[string]core.DAGNode, len(dag))
	indegree := make(map[string]int, len(dag))
	dependents := make(map[string][]string, len(dag))

	for _, n := range dag {
		byID[n.ID] = n
		indegree[n.ID] = len(n.DependsOn)
	}
	for _, n := range dag {
		for _, dep := range n.DependsOn {
			dependents[dep] = append(dependents[dep], n.ID)
		}
	}

	var queue []string
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	var batches [][]core.DAGNode
	processed := 0

	for len(queue) > 0 {
		sort.Strings(queue)
		level := make([]core.DAGNode, len(queue))
		for i, id := range queue {
			level[i] = byID[id]
		}
		batches = append(batches, level)

		var next []string
		for _, id := range queue {
			processed++
			for _, dependent := range dependents[id] {
				indegree[dependent]--
				if indegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		queue = next
	}

	if processed != len(dag) {
		return nil, apperr.New(apperr.InvalidDAG, fmt.Sprintf("cycle detected: processed %d of %d nodes", processed, len(dag)))
	}

	return batches, nil
}
