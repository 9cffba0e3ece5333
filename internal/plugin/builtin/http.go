// Package builtin provides a small representative plugin set: enough
// extract/transform/load implementations to exercise every
// domain-stack dependency SPEC_FULL.md names, registered against a
// plugin.Registry at startup. Concrete plugins are explicitly out of
// scope per spec.md §1 ("treated as opaque implementations of a small
// capability contract"); this package exists only so the registry and
// the rest of the domain stack have something real to call.
package builtin

import (
	"encoding/json"

	"github.com/go-resty/resty/v2"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/plugin"
)

// httpExtract fetches a JSON array of objects from a URL via resty and
// wraps it as a RowFrame.
type httpExtract struct {
	client *resty.Client
	url    string
}

// NewHTTPExtract builds an "http" extract plugin. Config keys: url.
func NewHTTPExtract(cfg plugin.Config) (plugin.Extract, error) {
	url, err := cfg.RequireString("url")
	if err != nil {
		return nil, err
	}
	return &httpExtract{client: resty.New(), url: url}, nil
}

func (p *httpExtract) Extract(ctx *plugin.Context) (core.Frame, error) {
	resp, err := p.client.R().SetContext(ctx).Get(p.url)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, err
	}

	return core.NewRowFrame(columnsOf(rows), rows), nil
}

func columnsOf(rows []map[string]any) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	return cols
}
