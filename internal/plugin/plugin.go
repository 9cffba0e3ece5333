// Package plugin defines the capability contract plugins implement and
// the registry that constructs them by name, per spec.md §4.4.
package plugin

import (
	"context"

	"github.com/mellivora/etl-engine/internal/apperr"
	"github.com/mellivora/etl-engine/internal/core"
)

// Context carries per-step identity, caller params, and the shared
// variable environment for one pipeline execution. The environment is
// mutated only by the (strictly sequential) pipeline executor; plugins
// read it through Variable/SetVariable but never run concurrently with each other
// within a single execution.
type Context struct {
	context.Context

	ExecutionID string
	TaskID      string

	params    map[string]any
	env       map[string]core.Frame
	bindOrder []string
}

// NewContext builds a plugin Context bound to ctx, carrying params and a
// fresh, empty variable environment.
func NewContext(ctx context.Context, executionID string, params map[string]any) *Context {
	if params == nil {
		params = map[string]any{}
	}
	return &Context{
		Context:     ctx,
		ExecutionID: executionID,
		params:      params,
		env:         map[string]core.Frame{},
	}
}

// Param returns params[key], or def if absent.
func (c *Context) Param(key string, def any) any {
	if v, ok := c.params[key]; ok {
		return v
	}
	return def
}

// SetVariable binds a frame into the shared environment under name.
func (c *Context) SetVariable(name string, frame core.Frame) {
	if _, existed := c.env[name]; !existed {
		c.bindOrder = append(c.bindOrder, name)
	}
	c.env[name] = frame
}

// Variable returns the frame bound under name, if any.
func (c *Context) Variable(name string) (core.Frame, bool) {
	f, ok := c.env[name]
	return f, ok
}

// LastVariable returns the frame bound under the most recently added
// name in the environment. Rebinding an existing name replaces its frame
// but does not move that name in bind order.
// This is the deterministic fallback rule spec.md §9(d) asks
// implementers to pick for input resolution when a transform/load step
// declares no explicit input: "most-recently-bound" wins.
func (c *Context) LastVariable() (core.Frame, bool) {
	if len(c.bindOrder) == 0 {
		return nil, false
	}
	last := c.bindOrder[len(c.bindOrder)-1]
	f, ok := c.env[last]
	return f, ok
}

// Config exposes the opaque config mapping passed to a plugin
// constructor, with the require/get semantics spec.md §4.4 mandates.
type Config map[string]any

// Require returns config[key], failing with apperr.MissingConfig if
// absent.
func (c Config) Require(key string) (any, error) {
	v, ok := c[key]
	if !ok {
		return nil, apperr.New(apperr.MissingConfig, key)
	}
	return v, nil
}

// RequireString is Require narrowed to strings, the common case for
// plugin config (DSNs, table names, bucket names, ...).
func (c Config) RequireString(key string) (string, error) {
	v, err := c.Require(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", apperr.New(apperr.MissingConfig, key+" must be a string")
	}
	return s, nil
}

// Get returns config[key], or def if absent.
func (c Config) Get(key string, def any) any {
	if v, ok := c[key]; ok {
		return v
	}
	return def
}

// GetString is Get narrowed to strings.
func (c Config) GetString(key, def string) string {
	if v, ok := c[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Extract produces a Frame with no input (§4.4).
type Extract interface {
	Extract(ctx *Context) (core.Frame, error)
}

// Transform consumes a Frame and produces another (§4.4).
type Transform interface {
	Transform(ctx *Context, in core.Frame) (core.Frame, error)
}

// Load consumes a Frame and reports rows written (§4.4).
type Load interface {
	Load(ctx *Context, in core.Frame) (int, error)
}

// ExtractFactory constructs an Extract plugin from its config.
type ExtractFactory func(cfg Config) (Extract, error)

// TransformFactory constructs a Transform plugin from its config.
type TransformFactory func(cfg Config) (Transform, error)

// LoadFactory constructs a Load plugin from its config.
type LoadFactory func(cfg Config) (Load, error)
