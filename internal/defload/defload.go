// Package defload loads pipeline and schedule definitions from YAML
// files on disk and upserts them into the metadata store. This is a
// supplemented feature: spec.md treats definition authoring as
// external, but a real deployment needs some way to get definitions
// into the store, and the rest of the retrieved corpus loads DAG-like
// definitions from glob-matched YAML files on disk, so this engine
// does too.
package defload

import (
	"context"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/mellivora/etl-engine/internal/core"
	"github.com/mellivora/etl-engine/internal/store"
)

// definitionDoc wraps a core.Pipeline or core.Schedule under a kind
// field, tolerating a document containing only one of the two.
type definitionDoc struct {
	Kind     string          `yaml:"kind"`
	Pipeline *core.Pipeline  `yaml:"pipeline,omitempty"`
	Schedule *core.Schedule  `yaml:"schedule,omitempty"`
}

// Loader reads definition files matched by a glob pattern and upserts
// them into a store.Store.
type Loader struct {
	store store.Store
}

// New builds a Loader backed by s.
func New(s store.Store) *Loader {
	return &Loader{store: s}
}

// LoadGlob resolves pattern (e.g. "definitions/**/*.yaml") against root
// and loads every matched file.
func (l *Loader) LoadGlob(ctx context.Context, root, pattern string) error {
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	for _, rel := range matches {
		path := root + string(os.PathSeparator) + rel
		if err := l.LoadFile(ctx, path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// LoadFile parses one YAML definition file and upserts its contents.
func (l *Loader) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc definitionDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}

	switch doc.Kind {
	case "pipeline":
		if doc.Pipeline == nil {
			return fmt.Errorf("kind: pipeline but no pipeline document present")
		}
		if err := l.store.UpsertPipeline(ctx, doc.Pipeline); err != nil {
			return err
		}
		if len(doc.Pipeline.Parameters) > 0 {
			if err := core.RegisterParameterSchema(doc.Pipeline.ID, schemaFromParameters(doc.Pipeline.Parameters)); err != nil {
				return fmt.Errorf("registering parameter schema: %w", err)
			}
		}
		return nil
	case "schedule":
		if doc.Schedule == nil {
			return fmt.Errorf("kind: schedule but no schedule document present")
		}
		return l.store.UpsertSchedule(ctx, doc.Schedule)
	default:
		return fmt.Errorf("unknown definition kind %q", doc.Kind)
	}
}

// schemaFromParameters turns a Pipeline's opaque Parameters list into a
// JSON schema object. Each entry is expected to carry at least "name";
// "type" defaults to "string" and "required: true" adds the name to the
// schema's required list.
func schemaFromParameters(params []map[string]any) *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(params))
	var required []string

	for _, p := range params {
		name, _ := p["name"].(string)
		if name == "" {
			continue
		}
		typ, _ := p["type"].(string)
		if typ == "" {
			typ = "string"
		}
		props[name] = &jsonschema.Schema{Type: typ}

		if req, _ := p["required"].(bool); req {
			required = append(required, name)
		}
	}

	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}
