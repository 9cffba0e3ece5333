package builtin

import (
	"fmt"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/plugin"
)

// filterTransform keeps rows whose field equals a configured value.
// Pure in-memory row comparison has no natural library home in the
// retrieved stack (see DESIGN.md); this is plain Go.
type filterTransform struct {
	field string
	equals any
}

// NewFilterTransform builds a "filter" transform plugin. Config keys:
// field, equals.
func NewFilterTransform(cfg plugin.Config) (plugin.Transform, error) {
	field, err := cfg.RequireString("field")
	if err != nil {
		return nil, err
	}
	equals, err := cfg.Require("equals")
	if err != nil {
		return nil, err
	}
	return &filterTransform{field: field, equals: equals}, nil
}

func (p *filterTransform) Transform(_ *plugin.Context, in core.Frame) (core.Frame, error) {
	rf, ok := in.(*core.RowFrame)
	if !ok {
		return nil, fmt.Errorf("filter transform requires a *core.RowFrame, got %T", in)
	}

	out := make([]map[string]any, 0, len(rf.Rows))
	for _, row := range rf.Rows {
		if fmt.Sprintf("%v", row[p.field]) == fmt.Sprintf("%v", p.equals) {
			out = append(out, row)
		}
	}
	return core.NewRowFrame(rf.Columns, out), nil
}

// aggregateTransform counts rows per distinct value of a group-by
// column, the simplest aggregate shape spec.md's plugin contract needs
// to exercise.
type aggregateTransform struct {
	groupBy string
}

// NewAggregateTransform builds an "aggregate" transform plugin. Config
// keys: group_by.
func NewAggregateTransform(cfg plugin.Config) (plugin.Transform, error) {
	groupBy, err := cfg.RequireString("group_by")
	if err != nil {
		return nil, err
	}
	return &aggregateTransform{groupBy: groupBy}, nil
}

func (p *aggregateTransform) Transform(_ *plugin.Context, in core.Frame) (core.Frame, error) {
	rf, ok := in.(*core.RowFrame)
	if !ok {
		return nil, fmt.Errorf("aggregate transform requires a *core.RowFrame, got %T", in)
	}

	counts := map[string]int{}
	order := make([]string, 0)
	for _, row := range rf.Rows {
		key := fmt.Sprintf("%v", row[p.groupBy])
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}

	out := make([]map[string]any, 0, len(order))
	for _, key := range order {
		out = append(out, map[string]any{p.groupBy: key, "count": counts[key]})
	}

	return core.NewRowFrame([]string{p.groupBy, "count"}, out), nil
}

// joinTransform left-joins the input frame against a second in-memory
// frame bound under another variable, matching on two field names.
type joinTransform struct {
	withVar string
	leftKey string
	rightKey string
}

// NewJoinTransform builds a "join" transform plugin. Config keys:
// with, left_key, right_key.
func NewJoinTransform(cfg plugin.Config) (plugin.Transform, error) {
	withVar, err := cfg.RequireString("with")
	if err != nil {
		return nil, err
	}
	leftKey, err := cfg.RequireString("left_key")
	if err != nil {
		return nil, err
	}
	rightKey, err := cfg.RequireString("right_key")
	if err != nil {
		return nil, err
	}
	return &joinTransform{withVar: withVar, leftKey: leftKey, rightKey: rightKey}, nil
}

func (p *joinTransform) Transform(ctx *plugin.Context, in core.Frame) (core.Frame, error) {
	left, ok := in.(*core.RowFrame)
	if !ok {
		return nil, fmt.Errorf("join transform requires a *core.RowFrame, got %T", in)
	}

	rightFrame, ok := ctx.Variable(p.withVar)
	if !ok {
		return nil, fmt.Errorf("join transform: variable %q not bound", p.withVar)
	}
	right, ok := rightFrame.(*core.RowFrame)
	if !ok {
		return nil, fmt.Errorf("join transform: variable %q is not a *core.RowFrame", p.withVar)
	}

	index := make(map[string]map[string]any, len(right.Rows))
	for _, row := range right.Rows {
		index[fmt.Sprintf("%v", row[p.rightKey])] = row
	}

	cols := append([]string{}, left.Columns...)
	for _, c := range right.Columns {
		if c != p.rightKey {
			cols = append(cols, c)
		}
	}

	out := make([]map[string]any, 0, len(left.Rows))
	for _, row := range left.Rows {
		merged := make(map[string]any, len(row)+len(right.Columns))
		for k, v := range row {
			merged[k] = v
		}
		if match, ok := index[fmt.Sprintf("%v", row[p.leftKey])]; ok {
			for k, v := range match {
				if k != p.rightKey {
					merged[k] = v
				}
			}
		}
		out = append(out, merged)
	}

	return core.NewRowFrame(cols, out), nil
}
