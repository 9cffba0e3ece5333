package builtin

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/plugin"
)

// csvExtract reads a local CSV file into a RowFrame. Plain encoding/csv
// is used here: none of the retrieved repos pull in a third-party CSV
// library, and the standard package already covers this shape (see
// DESIGN.md).
type csvExtract struct {
	path string
}

// NewCSVExtract builds a "csv" extract plugin. Config keys: path.
func NewCSVExtract(cfg plugin.Config) (plugin.Extract, error) {
	path, err := cfg.RequireString("path")
	if err != nil {
		return nil, err
	}
	return &csvExtract{path: path}, nil
}

func (p *csvExtract) Extract(_ *plugin.Context) (core.Frame, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return core.NewRowFrame(nil, nil), nil
	}

	header := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("csv row has %d fields, header has %d", len(record), len(header))
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			row[col] = record[i]
		}
		rows = append(rows, row)
	}

	return core.NewRowFrame(header, rows), nil
}

// csvLoad writes an input frame as a local CSV file.
type csvLoad struct {
	path string
}

// NewCSVLoad builds a "csv" load plugin. Config keys: path.
func NewCSVLoad(cfg plugin.Config) (plugin.Load, error) {
	path, err := cfg.RequireString("path")
	if err != nil {
		return nil, err
	}
	return &csvLoad{path: path}, nil
}

func (p *csvLoad) Load(_ *plugin.Context, in core.Frame) (int, error) {
	rf, ok := in.(*core.RowFrame)
	if !ok {
		return 0, fmt.Errorf("csv load requires a *core.RowFrame, got %T", in)
	}

	f, err := os.Create(p.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(rf.Columns); err != nil {
		return 0, err
	}
	for _, row := range rf.Rows {
		record := make([]string, len(rf.Columns))
		for i, col := range rf.Columns {
			record[i] = fmt.Sprintf("%v", row[col])
		}
		if err := w.Write(record); err != nil {
			return 0, err
		}
	}

	return len(rf.Rows), nil
}
