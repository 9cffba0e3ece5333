package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mellivora/etl-engine/internal/apperr"
	"github.com/mellivora/etl-engine/internal/core"
)

// Postgres is the production Store, backed by the tables declared in
// spec.md §6 (etl_pipelines, etl_schedules, etl_executions,
// etl_execution_tasks, etl_execution_logs).
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an already-configured pgxpool.Pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Open connects to Postgres using a DSN, matching the connection
// parameters recognized in spec.md §6.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreFailure, "connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.StoreFailure, "ping", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() { p.pool.Close() }

// withTx acquires a connection with the scoped acquisition pattern
// spec.md §5 requires: the transaction is committed on success, rolled
// back on any error, and the connection is always released.
func (p *Postgres) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.StoreFailure, "begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.StoreFailure, "commit tx", err)
	}
	return nil
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreFailure, "marshal json", err)
	}
	return b, nil
}

// GetPipeline implements Store.
func (p *Postgres) GetPipeline(ctx context.Context, id string) (*core.Pipeline, error) {
	var (
		pl          core.Pipeline
		description pgtype.Text
		triggerJSON []byte
		paramsJSON  []byte
		stepsJSON   []byte
	)

	row := p.pool.QueryRow(ctx, `
		SELECT id, name, version, description, trigger, parameters, steps
		FROM etl_pipelines
		WHERE id = $1
	`, id)

	if err := row.Scan(&pl.ID, &pl.Name, &pl.Version, &description, &triggerJSON, &paramsJSON, &stepsJSON); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.New(apperr.PipelineNotFound, id)
		}
		return nil, apperr.Wrap(apperr.StoreFailure, "get pipeline", err)
	}
	pl.Description = description.String

	if err := json.Unmarshal(triggerJSON, &pl.Trigger); err != nil {
		return nil, apperr.Wrap(apperr.StoreFailure, "decode trigger", err)
	}
	if err := json.Unmarshal(paramsJSON, &pl.Parameters); err != nil {
		return nil, apperr.Wrap(apperr.StoreFailure, "decode parameters", err)
	}
	if err := json.Unmarshal(stepsJSON, &pl.Steps); err != nil {
		return nil, apperr.Wrap(apperr.StoreFailure, "decode steps", err)
	}
	return &pl, nil
}

// UpsertPipeline implements Store.
func (p *Postgres) UpsertPipeline(ctx context.Context, pl *core.Pipeline) error {
	triggerJSON, err := marshalJSON(pl.Trigger)
	if err != nil {
		return err
	}
	paramsJSON, err := marshalJSON(pl.Parameters)
	if err != nil {
		return err
	}
	stepsJSON, err := marshalJSON(pl.Steps)
	if err != nil {
		return err
	}

	return p.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO etl_pipelines (id, name, version, description, trigger, parameters, steps, status)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7::jsonb, 'active')
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				version = EXCLUDED.version,
				description = EXCLUDED.description,
				trigger = EXCLUDED.trigger,
				parameters = EXCLUDED.parameters,
				steps = EXCLUDED.steps
		`, pl.ID, pl.Name, pl.Version, pl.Description, triggerJSON, paramsJSON, stepsJSON)
		if err != nil {
			return apperr.Wrap(apperr.StoreFailure, "upsert pipeline", err)
		}
		return nil
	})
}

// GetSchedule implements Store.
func (p *Postgres) GetSchedule(ctx context.Context, id string) (*core.Schedule, error) {
	schedules, err := p.queryScheduleRows(ctx, `
		SELECT id, name, description, cron_expr, timezone, enabled, dag, last_run_at, next_run_at
		FROM etl_schedules
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	if len(schedules) == 0 {
		return nil, apperr.New(apperr.ScheduleNotFound, id)
	}
	return schedules[0], nil
}

// ListEnabledSchedules implements Store.
func (p *Postgres) ListEnabledSchedules(ctx context.Context) ([]*core.Schedule, error) {
	return p.queryScheduleRows(ctx, `
		SELECT id, name, description, cron_expr, timezone, enabled, dag, last_run_at, next_run_at
		FROM etl_schedules
		WHERE enabled = true
	`)
}

func (p *Postgres) queryScheduleRows(ctx context.Context, query string, args ...any) ([]*core.Schedule, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreFailure, "query schedules", err)
	}
	defer rows.Close()

	var out []*core.Schedule
	for rows.Next() {
		var (
			s           core.Schedule
			description pgtype.Text
			dagJSON     []byte
		)
		if err := rows.Scan(&s.ID, &s.Name, &description, &s.CronExpr, &s.Timezone, &s.Enabled, &dagJSON, &s.LastRunAt, &s.NextRunAt); err != nil {
			return nil, apperr.Wrap(apperr.StoreFailure, "scan schedule", err)
		}
		s.Description = description.String
		if err := json.Unmarshal(dagJSON, &s.DAG); err != nil {
			return nil, apperr.Wrap(apperr.StoreFailure, "decode dag", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.StoreFailure, "iterate schedules", err)
	}
	return out, nil
}

// UpsertSchedule implements Store.
func (p *Postgres) UpsertSchedule(ctx context.Context, s *core.Schedule) error {
	dagJSON, err := marshalJSON(s.DAG)
	if err != nil {
		return err
	}

	return p.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO etl_schedules (id, name, description, cron_expr, timezone, enabled, dag)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				cron_expr = EXCLUDED.cron_expr,
				timezone = EXCLUDED.timezone,
				enabled = EXCLUDED.enabled,
				dag = EXCLUDED.dag
		`, s.ID, s.Name, s.Description, s.CronExpr, s.Timezone, s.Enabled, dagJSON)
		if err != nil {
			return apperr.Wrap(apperr.StoreFailure, "upsert schedule", err)
		}
		return nil
	})
}

// UpdateLastRunAt implements Store.
func (p *Postgres) UpdateLastRunAt(ctx context.Context, scheduleID string, at core.Time) error {
	_, err := p.pool.Exec(ctx, `UPDATE etl_schedules SET last_run_at = $1 WHERE id = $2`, at, scheduleID)
	if err != nil {
		return apperr.Wrap(apperr.StoreFailure, "update last_run_at", err)
	}
	return nil
}

// UpdateNextRunAt implements Store.
func (p *Postgres) UpdateNextRunAt(ctx context.Context, scheduleID string, at core.Time) error {
	_, err := p.pool.Exec(ctx, `UPDATE etl_schedules SET next_run_at = $1 WHERE id = $2`, at, scheduleID)
	if err != nil {
		return apperr.Wrap(apperr.StoreFailure, "update next_run_at", err)
	}
	return nil
}

// CreateExecution implements Store.
func (p *Postgres) CreateExecution(ctx context.Context, e *core.Execution) error {
	paramsJSON, err := marshalJSON(e.Params)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO etl_executions
			(id, schedule_id, schedule_name, pipeline_id, pipeline_name, status, trigger, params, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)
	`, e.ID, nullable(e.ScheduleID), nullable(e.ScheduleName), nullable(e.PipelineID), nullable(e.PipelineName),
		e.Status, e.Trigger, paramsJSON, e.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.StoreFailure, "create execution", err)
	}
	return nil
}

// UpdateExecution implements Store.
func (p *Postgres) UpdateExecution(ctx context.Context, e *core.Execution) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE etl_executions
		SET status = $1, started_at = $2, finished_at = $3, duration = $4, error_message = $5
		WHERE id = $6
	`, e.Status, e.StartedAt, e.FinishedAt, e.DurationMS, nullable(e.ErrorMessage), e.ID)
	if err != nil {
		return apperr.Wrap(apperr.StoreFailure, "update execution", err)
	}
	return nil
}

// GetExecution implements Store.
func (p *Postgres) GetExecution(ctx context.Context, id string) (*core.Execution, error) {
	var (
		e                                                    core.Execution
		scheduleID, scheduleName, pipelineID, pipelineName   pgtype.Text
		errorMessage                                         pgtype.Text
		paramsJSON                                           []byte
	)
	row := p.pool.QueryRow(ctx, `
		SELECT id, schedule_id, schedule_name, pipeline_id, pipeline_name, status, trigger,
		       params, started_at, finished_at, duration, error_message, created_at
		FROM etl_executions
		WHERE id = $1
	`, id)

	if err := row.Scan(&e.ID, &scheduleID, &scheduleName, &pipelineID, &pipelineName, &e.Status,
		&e.Trigger, &paramsJSON, &e.StartedAt, &e.FinishedAt, &e.DurationMS, &errorMessage, &e.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("execution %s: %w", id, apperr.StoreFailure)
		}
		return nil, apperr.Wrap(apperr.StoreFailure, "get execution", err)
	}
	e.ScheduleID, e.ScheduleName, e.PipelineID, e.PipelineName = scheduleID.String, scheduleName.String, pipelineID.String, pipelineName.String
	e.ErrorMessage = errorMessage.String
	if err := json.Unmarshal(paramsJSON, &e.Params); err != nil {
		return nil, apperr.Wrap(apperr.StoreFailure, "decode params", err)
	}
	return &e, nil
}

// CreateTask implements Store.
func (p *Postgres) CreateTask(ctx context.Context, t *core.ExecutionTask) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO etl_execution_tasks (id, execution_id, node_id, node_name, status)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.ExecutionID, t.NodeID, t.NodeName, t.Status)
	if err != nil {
		return apperr.Wrap(apperr.StoreFailure, "create task", err)
	}
	return nil
}

// UpdateTask implements Store.
func (p *Postgres) UpdateTask(ctx context.Context, t *core.ExecutionTask) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE etl_execution_tasks
		SET status = $1, started_at = $2, finished_at = $3, input_rows = $4, output_rows = $5, error = $6
		WHERE id = $7
	`, t.Status, t.StartedAt, t.FinishedAt, t.InputRows, t.OutputRows, nullable(t.Error), t.ID)
	if err != nil {
		return apperr.Wrap(apperr.StoreFailure, "update task", err)
	}
	return nil
}

// AddLog implements Store.
func (p *Postgres) AddLog(ctx context.Context, l *core.LogRecord) error {
	metaJSON, err := marshalJSON(l.Metadata)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO etl_execution_logs (execution_id, task_id, level, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
	`, l.ExecutionID, nullable(l.TaskID), l.Level, l.Message, metaJSON, l.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.StoreFailure, "add log", err)
	}
	return nil
}

// nullable maps an empty string to SQL NULL so optional foreign keys
// (schedule_id, pipeline_id, task_id, ...) round-trip correctly.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
