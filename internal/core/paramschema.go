package core

import (
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// paramSchemas caches resolved JSON schemas keyed by pipeline id, so a
// pipeline's opaque parameter schema only needs to be resolved once.
var (
	paramSchemasMu sync.RWMutex
	paramSchemas   = map[string]*jsonschema.Resolved{}
)

// RegisterParameterSchema compiles and caches a JSON schema describing
// the valid shape of params a caller may pass when triggering the named
// pipeline. Pipeline.Parameters (spec.md §3, "opaque list") is converted
// to a JSON schema object by the caller (typically internal/defload) and
// registered here; the core never otherwise interprets it.
func RegisterParameterSchema(pipelineID string, schema *jsonschema.Schema) error {
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve parameter schema for %s: %w", pipelineID, err)
	}

	paramSchemasMu.Lock()
	paramSchemas[pipelineID] = resolved
	paramSchemasMu.Unlock()
	return nil
}

// ValidateParams checks params against the pipeline's registered schema.
// Pipelines with no registered schema accept any params, matching the
// "opaque" treatment spec.md gives parameter schemas absent a declared
// contract.
func ValidateParams(pipelineID string, params map[string]any) error {
	paramSchemasMu.RLock()
	resolved, ok := paramSchemas[pipelineID]
	paramSchemasMu.RUnlock()
	if !ok {
		return nil
	}

	if err := resolved.Validate(params); err != nil {
		return fmt.Errorf("invalid params for pipeline %s: %w", pipelineID, err)
	}
	return nil
}
