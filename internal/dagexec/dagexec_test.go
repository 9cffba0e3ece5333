package dagexec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mellivora/etl-engine/internal/core"
)

func TestBatchesFor_LinearChain(t *testing.T) {
	dag := []core.DAGNode{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"b"}},
	}

	batches, err := batchesFor(dag)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	require.Equal(t, "a", batches[0][0].ID)
	require.Equal(t, "b", batches[1][0].ID)
	require.Equal(t, "c", batches[2][0].ID)
}

func TestBatchesFor_ParallelBatch(t *testing.T) {
	dag := []core.DAGNode{
		{ID: "a"},
		{ID: "b"},
		{ID: "c", DependsOn: []string{"a", "b"}},
	}

	batches, err := batchesFor(dag)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.ElementsMatch(t, []string{"a", "b"}, idsOf(batches[0]))
	require.Equal(t, []string{"c"}, idsOf(batches[1]))
}

func TestBatchesFor_DeterministicTieBreak(t *testing.T) {
	dag := []core.DAGNode{
		{ID: "z"},
		{ID: "a"},
		{ID: "m"},
	}

	batches, err := batchesFor(dag)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, []string{"a", "m", "z"}, idsOf(batches[0]))
}

func TestBatchesFor_DetectsCycle(t *testing.T) {
	dag := []core.DAGNode{
		{ID: "a", DependsOn: []string{"c"}},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"b"}},
	}

	_, err := batchesFor(dag)
	require.Error(t, err)
}

func TestBatchesFor_Empty(t *testing.T) {
	batches, err := batchesFor(nil)
	require.NoError(t, err)
	require.Empty(t, batches)
}

func idsOf(nodes []core.DAGNode) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
