package core

import (
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/require"
)

func TestStatusTerminal(t *testing.T) {
	cases := map[Status]bool{
		StatusPending:   false,
		StatusRunning:   false,
		StatusSuccess:   true,
		StatusFailed:    true,
		StatusCancelled: true,
	}
	for status, want := range cases {
		require.Equal(t, want, status.Terminal(), "status %q", status)
	}
}

func TestDurationMillis(t *testing.T) {
	require.Equal(t, int64(0), DurationMillis(nil, nil))

	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, int64(0), DurationMillis(&started, nil))
	require.Equal(t, int64(0), DurationMillis(nil, &started))

	finished := started.Add(1500 * time.Millisecond)
	require.Equal(t, int64(1500), DurationMillis(&started, &finished))
}

func TestStepOutputVar(t *testing.T) {
	withOutput := Step{ID: "step1", Output: "custom"}
	require.Equal(t, "custom", withOutput.OutputVar())

	withoutOutput := Step{ID: "step1"}
	require.Equal(t, "step1", withoutOutput.OutputVar())
}

func TestDAGNodeTimeout(t *testing.T) {
	require.Equal(t, DefaultNodeTimeout, DAGNode{}.Timeout())
	require.Equal(t, DefaultNodeTimeout, DAGNode{TimeoutSec: -5}.Timeout())
	require.Equal(t, 120, DAGNode{TimeoutSec: 120}.Timeout())
}

func TestValidateParams_NoSchemaAcceptsAnything(t *testing.T) {
	require.NoError(t, ValidateParams("unregistered-pipeline", map[string]any{"anything": 1}))
}

func TestValidateParams_RegisteredSchema(t *testing.T) {
	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"batch_size": {Type: "integer"},
		},
		Required: []string{"batch_size"},
	}
	require.NoError(t, RegisterParameterSchema("schema-pipeline", schema))

	require.NoError(t, ValidateParams("schema-pipeline", map[string]any{"batch_size": 10}))
	require.Error(t, ValidateParams("schema-pipeline", map[string]any{}))
}
