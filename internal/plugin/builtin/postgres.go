package builtin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/plugin"
)

// postgresExtract runs a SELECT and wraps the rows as a RowFrame.
type postgresExtract struct {
	pool  *pgxpool.Pool
	query string
}

// NewPostgresExtract builds a "postgres" extract plugin. Config keys:
// dsn, query.
func NewPostgresExtract(cfg plugin.Config) (plugin.Extract, error) {
	dsn, err := cfg.RequireString("dsn")
	if err != nil {
		return nil, err
	}
	query, err := cfg.RequireString("query")
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &postgresExtract{pool: pool, query: query}, nil
}

func (p *postgresExtract) Extract(ctx *plugin.Context) (core.Frame, error) {
	rows, err := p.pool.Query(ctx, p.query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	cols := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		cols[i] = string(fd.Name)
	}

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return core.NewRowFrame(cols, out), nil
}

// postgresLoad writes every row of an input frame into a table via a
// bulk COPY.
type postgresLoad struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresLoad builds a "postgres" load plugin. Config keys: dsn,
// table.
func NewPostgresLoad(cfg plugin.Config) (plugin.Load, error) {
	dsn, err := cfg.RequireString("dsn")
	if err != nil {
		return nil, err
	}
	table, err := cfg.RequireString("table")
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &postgresLoad{pool: pool, table: table}, nil
}

func (p *postgresLoad) Load(ctx *plugin.Context, in core.Frame) (int, error) {
	rf, ok := in.(*core.RowFrame)
	if !ok {
		return 0, fmt.Errorf("postgres load requires a *core.RowFrame, got %T", in)
	}
	if len(rf.Rows) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(rf.Rows))
	for i, row := range rf.Rows {
		vals := make([]any, len(rf.Columns))
		for j, col := range rf.Columns {
			vals[j] = row[col]
		}
		rows[i] = vals
	}

	n, err := p.pool.CopyFrom(ctx, pgx.Identifier{p.table}, rf.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
