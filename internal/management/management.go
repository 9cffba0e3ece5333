// Package management implements the operator-facing operations from
// spec.md §6: listing registered plugins, listing actively polled
// schedules, and triggering a schedule or pipeline on demand.
package management

import (
	"context"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/cronsched"
	"github.com/mellivora/etl-engine/internal/dagexec"
	"github.com/mellivora/etl-engine/internal/plugin"
)

// Service wires the registry, scheduler, and DAG executor behind the
// small set of operator operations.
type Service struct {
	registry *plugin.Registry
	sched    *cronsched.Scheduler
	dagexec  *dagexec.Executor
}

// New builds a management Service.
func New(registry *plugin.Registry, sched *cronsched.Scheduler, exec *dagexec.Executor) *Service {
	return &Service{registry: registry, sched: sched, dagexec: exec}
}

// ListPlugins returns every registered plugin name, grouped by kind.
func (s *Service) ListPlugins() map[string][]string {
	return s.registry.List()
}

// ListActiveSchedules returns every schedule currently polled by the
// cron scheduler, with its next scheduled run time.
func (s *Service) ListActiveSchedules() []cronsched.ActiveScheduleInfo {
	return s.sched.ActiveSchedules()
}

// TriggerSchedule runs scheduleID's DAG immediately, as a manual trigger.
func (s *Service) TriggerSchedule(ctx context.Context, scheduleID string, params map[string]any) (*core.Execution, error) {
	return s.sched.TriggerManual(ctx, scheduleID, params)
}

// TriggerPipeline runs pipelineID standalone, as a manual trigger.
func (s *Service) TriggerPipeline(ctx context.Context, pipelineID string, params map[string]any) (*core.Execution, error) {
	return s.dagexec.ExecutePipeline(ctx, pipelineID, core.TriggerManual, params)
}
