package builtin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mellivora/etl-engine/internal/plugin"
)

func TestRegister_WiresEveryBuiltin(t *testing.T) {
	r := plugin.New()
	Register(r)

	names := r.List()
	require.ElementsMatch(t, []string{"http", "postgres", "csv"}, names["extract"])
	require.ElementsMatch(t, []string{"filter", "aggregate", "join", "dedupe"}, names["transform"])
	require.ElementsMatch(t, []string{"postgres", "csv", "cache", "minio"}, names["load"])
}
