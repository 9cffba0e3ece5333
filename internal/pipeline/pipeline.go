// Package pipeline executes a single Pipeline's steps in dependency
// order, per spec.md §4.3.
package pipeline

import (
	"fmt"

	"github.com/mellivora/etl-engine/internal/apperr"
	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/logger"
	"github.com/mellivora/etl-engine/internal/plugin"
	"github.com/mellivora/etl-engine/internal/state"
)

// Executor runs a Pipeline's steps against a registry, recording task
// and log state through a state.Manager as it goes.
type Executor struct {
	state    *state.Manager
	registry *plugin.Registry
	log      logger.Logger
}

// NewExecutor builds a pipeline Executor.
func NewExecutor(s *state.Manager, registry *plugin.Registry, log logger.Logger) *Executor {
	return &Executor{state: s, registry: registry, log: log}
}

// Execute runs every step of p in dependency order, returning false
// (without error) on the first step failure: a failed step is recorded
// on its task and stops the run. An error is returned only for a step
// dependency cycle or a failure to create, start, or complete a task.
func (e *Executor) Execute(ctx *plugin.Context, p *core.Pipeline) (bool, error) {
	e.log.Info("executing pipeline", "pipeline_id", p.ID, "pipeline_name", p.Name)

	steps, err := topologicalSort(p.Steps)
	if err != nil {
		return false, err
	}

	for _, step := range steps {
		task, err := e.state.CreateTask(ctx, ctx.ExecutionID, step.ID, step.Name)
		if err != nil {
			return false, err
		}
		ctx.TaskID = task.ID

		if err := e.state.StartTask(ctx, task); err != nil {
			return false, err
		}

		e.log.Info("executing step", "step_id", step.ID, "step_name", step.Name, "step_kind", step.Kind)

		inputRows, outputRows, stepErr := e.runStep(ctx, step)
		if stepErr != nil {
			errMsg := stepErr.Error()
			e.log.Error("step failed", "step_id", step.ID, "error", errMsg)

			_ = e.state.CompleteTask(ctx, task, state.CompleteTaskParams{
				Status: core.StatusFailed,
				Error:  errMsg,
			})
			_ = e.state.AddLog(ctx, ctx.ExecutionID, task.ID, "ERROR",
				fmt.Sprintf("Step %s failed: %s", step.Name, errMsg), nil)

			return false, nil
		}

		e.log.Info("step completed", "step_id", step.ID, "input_rows", inputRows, "output_rows", outputRows)

		ir, or := inputRows, outputRows
		if err := e.state.CompleteTask(ctx, task, state.CompleteTaskParams{
			Status:     core.StatusSuccess,
			InputRows:  &ir,
			OutputRows: &or,
		}); err != nil {
			return false, err
		}
	}

	return true, nil
}

// runStep dispatches a single step to its plugin kind, returning the
// rows read and written so the caller can record them on the task.
func (e *Executor) runStep(ctx *plugin.Context, step core.Step) (inputRows, outputRows int, err error) {
	switch step.Kind {
	case core.StepExtract:
		p, err := e.registry.NewExtract(step.Plugin, plugin.Config(step.Config))
		if err != nil {
			return 0, 0, err
		}
		frame, err := p.Extract(ctx)
		if err != nil {
			return 0, 0, apperr.Wrap(apperr.PluginFailure, step.Plugin, err)
		}
		ctx.SetVariable(step.OutputVar(), frame)
		return 0, frame.Len(), nil

	case core.StepTransform:
		in, err := e.resolveInput(ctx, step)
		if err != nil {
			return 0, 0, err
		}
		p, err := e.registry.NewTransform(step.Plugin, plugin.Config(step.Config))
		if err != nil {
			return in.Len(), 0, err
		}
		out, err := p.Transform(ctx, in)
		if err != nil {
			return in.Len(), 0, apperr.Wrap(apperr.PluginFailure, step.Plugin, err)
		}
		ctx.SetVariable(step.OutputVar(), out)
		return in.Len(), out.Len(), nil

	case core.StepLoad:
		in, err := e.resolveInput(ctx, step)
		if err != nil {
			return 0, 0, err
		}
		p, err := e.registry.NewLoad(step.Plugin, plugin.Config(step.Config))
		if err != nil {
			return in.Len(), 0, err
		}
		written, err := p.Load(ctx, in)
		if err != nil {
			return in.Len(), 0, apperr.Wrap(apperr.PluginFailure, step.Plugin, err)
		}
		return in.Len(), written, nil

	default:
		return 0, 0, apperr.New(apperr.InvalidPipeline, "unknown step kind: "+string(step.Kind))
	}
}

// resolveInput returns the Frame a transform/load step reads: the
// explicitly named input variable, or, absent one, the most recently
// bound frame in the environment (spec.md §9(d)).
func (e *Executor) resolveInput(ctx *plugin.Context, step core.Step) (core.Frame, error) {
	if step.Input != "" {
		f, ok := ctx.Variable(step.Input)
		if !ok {
			return nil, apperr.New(apperr.InputNotFound, step.Input)
		}
		return f, nil
	}

	f, ok := ctx.LastVariable()
	if !ok {
		return nil, apperr.New(apperr.InputNotFound, "no bound variable for step "+step.ID)
	}
	return f, nil
}

// topologicalSort orders steps by their input/output dependency chain,
// per spec.md §4.3 step 2: a step depends on the step that declared its
// input as an output, or on the step named by its input directly if
// that name is itself a step id.
func topologicalSort(steps []core.Step) ([]core.Step, error) {
	byID := make(map[string]core.Step, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}

	deps := make(map[string]map[string]struct{}, len(steps))
	for _, s := range steps {
		set := map[string]struct{}{}
		if s.Input != "" {
			if _, ok := byID[s.Input]; ok {
				set[s.Input] = struct{}{}
			}
			for _, other := range steps {
				if other.OutputVar() == s.Input {
					set[other.ID] = struct{}{}
				}
			}
		}
		deps[s.ID] = set
	}

	var order []string
	visited := map[string]bool{}
	inProgress := map[string]bool{}

	var visit func(id string) error
	visit = func(id string) error {
		if inProgress[id] {
			return apperr.New(apperr.InvalidPipeline, "circular dependency detected at: "+id)
		}
		if visited[id] {
			return nil
		}
		inProgress[id] = true
		for dep := range deps[id] {
			if _, ok := byID[dep]; ok {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		inProgress[id] = false
		visited[id] = true
		order = append(order, id)
		return nil
	}

	for _, s := range steps {
		if !visited[s.ID] {
			if err := visit(s.ID); err != nil {
				return nil, err
			}
		}
	}

	out := make([]core.Step, len(order))
	for i, id := range order {
		out[i] = byID[id]
	}
	return out, nil
}
