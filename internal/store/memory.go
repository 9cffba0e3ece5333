package store

import (
	"context"
	"sync"

	"github.com/mellivora/etl-engine/internal/apperr"
	"github.com/mellivora/etl-engine/internal/core"
)

// Memory is an in-process Store used by tests. It implements the same
// Store contract as Postgres without a database dependency.
type Memory struct {
	mu         sync.Mutex
	pipelines  map[string]*core.Pipeline
	schedules  map[string]*core.Schedule
	executions map[string]*core.Execution
	tasks      map[string]*core.ExecutionTask
	logs       []*core.LogRecord
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		pipelines:  map[string]*core.Pipeline{},
		schedules:  map[string]*core.Schedule{},
		executions: map[string]*core.Execution{},
		tasks:      map[string]*core.ExecutionTask{},
	}
}

func (m *Memory) GetPipeline(_ context.Context, id string) (*core.Pipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pipelines[id]
	if !ok {
		return nil, apperr.New(apperr.PipelineNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) UpsertPipeline(_ context.Context, p *core.Pipeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.pipelines[p.ID] = &cp
	return nil
}

func (m *Memory) GetSchedule(_ context.Context, id string) (*core.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, apperr.New(apperr.ScheduleNotFound, id)
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) ListEnabledSchedules(_ context.Context) ([]*core.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*core.Schedule
	for _, s := range m.schedules {
		if s.Enabled {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) UpsertSchedule(_ context.Context, s *core.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.schedules[s.ID] = &cp
	return nil
}

func (m *Memory) UpdateLastRunAt(_ context.Context, scheduleID string, at core.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.schedules[scheduleID]; ok {
		t := at
		s.LastRunAt = &t
	}
	return nil
}

func (m *Memory) UpdateNextRunAt(_ context.Context, scheduleID string, at core.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.schedules[scheduleID]; ok {
		t := at
		s.NextRunAt = &t
	}
	return nil
}

func (m *Memory) CreateExecution(_ context.Context, e *core.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.executions[e.ID] = &cp
	return nil
}

func (m *Memory) UpdateExecution(_ context.Context, e *core.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.executions[e.ID] = &cp
	return nil
}

func (m *Memory) GetExecution(_ context.Context, id string) (*core.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return nil, apperr.Wrap(apperr.StoreFailure, "execution not found: "+id, nil)
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) CreateTask(_ context.Context, t *core.ExecutionTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *Memory) UpdateTask(_ context.Context, t *core.ExecutionTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *Memory) AddLog(_ context.Context, l *core.LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.logs = append(m.logs, &cp)
	return nil
}

// Tasks returns a snapshot of every task created so far, for assertions
// in tests.
func (m *Memory) Tasks() []*core.ExecutionTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*core.ExecutionTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		cp := *t
		out = append(out, &cp)
	}
	return out
}

// Logs returns a snapshot of every log record appended so far.
func (m *Memory) Logs() []*core.LogRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*core.LogRecord, len(m.logs))
	copy(out, m.logs)
	return out
}

var _ Store = (*Memory)(nil)
