package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
)

func testNode(dataSourceID, nodeID string, ts uint64, parents ...string) domain.Node {
	return domain.NewNode(dataSourceID, nodeID, domain.NodeTypeDocument, ts,
		"Title "+nodeID, "text/plain", parents)
}

func TestNewNodeStore(t *testing.T) {
	store := NewNodeStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.nodes)
}

func TestNodeStore_Save_Success(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()

	node := testNode("ds-1", "n-1", 100, "folder-1")
	require.NoError(t, store.Save(ctx, node))

	saved, err := store.Get(ctx, node.Key())
	require.NoError(t, err)
	assert.True(t, node.Equal(saved))
}

func TestNodeStore_Save_ReplacesSnapshot(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testNode("ds-1", "n-1", 100)))
	require.NoError(t, store.Save(ctx, testNode("ds-1", "n-1", 200)))

	saved, err := store.Get(ctx, domain.NodeKey{DataSourceID: "ds-1", NodeID: "n-1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(200), saved.Timestamp())

	nodes, err := store.List(ctx, "ds-1")
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestNodeStore_Get_NotFound(t *testing.T) {
	store := NewNodeStore()

	_, err := store.Get(context.Background(), domain.NodeKey{DataSourceID: "ds", NodeID: "missing"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNodeStore_KeyScopedByDataSource(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testNode("ds-1", "same", 1)))
	require.NoError(t, store.Save(ctx, testNode("ds-2", "same", 2)))

	a, err := store.Get(ctx, domain.NodeKey{DataSourceID: "ds-1", NodeID: "same"})
	require.NoError(t, err)
	b, err := store.Get(ctx, domain.NodeKey{DataSourceID: "ds-2", NodeID: "same"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.Timestamp())
	assert.Equal(t, uint64(2), b.Timestamp())
}

func TestNodeStore_SaveBatch(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()

	require.NoError(t, store.SaveBatch(ctx, nil))
	require.NoError(t, store.SaveBatch(ctx, []domain.Node{
		testNode("ds-1", "b", 1),
		testNode("ds-1", "a", 1),
		testNode("ds-2", "c", 1),
	}))

	nodes, err := store.List(ctx, "ds-1")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "a", nodes[0].NodeID())
	assert.Equal(t, "b", nodes[1].NodeID())
}

func TestNodeStore_Delete(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()
	node := testNode("ds-1", "n-1", 1)

	require.NoError(t, store.Save(ctx, node))
	require.NoError(t, store.Delete(ctx, node.Key()))

	_, err := store.Get(ctx, node.Key())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is a no-op
	assert.NoError(t, store.Delete(ctx, node.Key()))
}

func TestNodeStore_List_Empty(t *testing.T) {
	store := NewNodeStore()

	nodes, err := store.List(context.Background(), "nothing")

	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestNodeStore_ListDataSources(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()

	require.NoError(t, store.SaveBatch(ctx, []domain.Node{
		testNode("zeta", "a", 1),
		testNode("alpha", "a", 1),
		testNode("alpha", "b", 1),
	}))

	ids, err := store.ListDataSources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, ids)
}

func TestNodeStore_Concurrency(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	numGoroutines := 50

	// Concurrent saves
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			_ = store.Save(ctx, testNode("ds-1", fmt.Sprintf("n-%02d", id), uint64(id)))
		}(i)
	}
	wg.Wait()

	// Concurrent reads
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			_, _ = store.Get(ctx, domain.NodeKey{DataSourceID: "ds-1", NodeID: fmt.Sprintf("n-%02d", id)})
		}(i)
	}
	wg.Wait()

	nodes, err := store.List(ctx, "ds-1")
	require.NoError(t, err)
	assert.Len(t, nodes, numGoroutines)
}

func TestNodeStore_Replace(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, testNode("ds", "n", 1)))

	folder := domain.NewNode("ds", "n", domain.NodeTypeFolder, 2, "n", "", nil)
	require.NoError(t, store.Replace(ctx, folder))

	saved, err := store.Get(ctx, folder.Key())
	require.NoError(t, err)
	assert.True(t, folder.Equal(saved))
}

func TestNodeStore_DeleteBatch(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()
	require.NoError(t, store.SaveBatch(ctx, []domain.Node{
		testNode("ds", "a", 1), testNode("ds", "b", 1), testNode("ds", "c", 1),
	}))

	require.NoError(t, store.DeleteBatch(ctx, []domain.NodeKey{
		{DataSourceID: "ds", NodeID: "a"},
		{DataSourceID: "ds", NodeID: "c"},
		{DataSourceID: "ds", NodeID: "missing"},
	}))

	nodes, err := store.List(ctx, "ds")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "b", nodes[0].NodeID())
}

func TestNodeStore_DeleteTree(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()
	require.NoError(t, store.SaveBatch(ctx, []domain.Node{
		testNode("ds", "pkg", 1),
		testNode("ds", "pkg/sub", 1, "pkg"),
		testNode("ds", "pkg/sub/b.csv", 1, "pkg/sub", "pkg"),
		testNode("ds", "pkgx", 1),
		testNode("other", "pkg/sub", 1, "pkg"),
	}))

	removed, err := store.DeleteTree(ctx, domain.NodeKey{DataSourceID: "ds", NodeID: "pkg"})
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	nodes, err := store.List(ctx, "ds")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "pkgx", nodes[0].NodeID())

	others, err := store.List(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}
