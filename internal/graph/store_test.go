package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultmap/faultmap-backend/migrations"
)

// migratedStore opens an in-memory SQLite store with the embedded schema
// applied, exactly as local single-binary mode boots.
func migratedStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewSQLite(":memory:", 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, migrations.Apply(store.DB()))
	return store
}

func mustExec(t *testing.T, store *Store, query string, args ...any) {
	t.Helper()
	_, err := store.DB().Exec(store.DB().Rebind(query), args...)
	require.NoError(t, err)
}

func seedNode(t *testing.T, store *Store, id, resourceType, tags string) {
	t.Helper()
	mustExec(t, store,
		`INSERT INTO resource_nodes (id, resource_type, name, cloud_provider, region, tags) VALUES (?, ?, ?, ?, ?, ?)`,
		id, resourceType, id, "aws", "us-east-1", tags)
}

func seedEdge(t *testing.T, store *Store, source, target string) {
	t.Helper()
	mustExec(t, store,
		`INSERT INTO dependency_edges (source_id, target_id, relationship_type, strength, category) VALUES (?, ?, 'depends_on', 1.0, 'network')`,
		source, target)
}

// api and worker depend on db; web depends on both, closing a diamond.
func seedDiamond(t *testing.T, store *Store) {
	seedNode(t, store, "db", "rds_postgres", `{"team":"storage"}`)
	seedNode(t, store, "api", "api_service", "{}")
	seedNode(t, store, "worker", "worker_service", "{}")
	seedNode(t, store, "web", "web_frontend", "{}")
	seedEdge(t, store, "api", "db")
	seedEdge(t, store, "worker", "db")
	seedEdge(t, store, "web", "api")
	seedEdge(t, store, "web", "worker")
}

func TestStoreGetNode(t *testing.T) {
	store := migratedStore(t)
	seedDiamond(t, store)

	got, err := store.GetNode(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, "rds_postgres", got.ResourceType)
	assert.Equal(t, "aws", got.CloudProvider)
	assert.Equal(t, "storage", got.Tags["team"])
}

func TestStoreGetNodeNotFound(t *testing.T) {
	store := migratedStore(t)
	seedDiamond(t, store)

	_, err := store.GetNode(context.Background(), "ghost")
	assert.True(t, IsNotFound(err))
}

func TestStoreDownstreamDiamond(t *testing.T) {
	store := migratedStore(t)
	seedDiamond(t, store)

	down, err := store.GetDownstream(context.Background(), "db", 0)
	require.NoError(t, err)
	require.Len(t, down, 3, "web must appear once despite two paths")

	byID := map[string]int{}
	for _, n := range down {
		byID[n.Node.ID] = n.Distance
	}
	assert.Equal(t, map[string]int{"api": 1, "worker": 1, "web": 2}, byID)
}

func TestStoreDownstreamDepthLimit(t *testing.T) {
	store := migratedStore(t)
	seedDiamond(t, store)

	down, err := store.GetDownstream(context.Background(), "db", 1)
	require.NoError(t, err)
	require.Len(t, down, 2)
	for _, n := range down {
		assert.Equal(t, 1, n.Distance)
	}
}

func TestStoreUpstream(t *testing.T) {
	store := migratedStore(t)
	seedDiamond(t, store)

	up, err := store.GetUpstream(context.Background(), "web", 0)
	require.NoError(t, err)
	require.Len(t, up, 3)
	byID := map[string]int{}
	for _, n := range up {
		byID[n.Node.ID] = n.Distance
	}
	assert.Equal(t, map[string]int{"api": 1, "worker": 1, "db": 2}, byID)

	up, err = store.GetUpstream(context.Background(), "db", 0)
	require.NoError(t, err)
	assert.Empty(t, up)
}

func TestStoreClosureCycleTerminates(t *testing.T) {
	store := migratedStore(t)
	seedNode(t, store, "a", "api_service", "{}")
	seedNode(t, store, "b", "api_service", "{}")
	seedEdge(t, store, "a", "b")
	seedEdge(t, store, "b", "a")

	down, err := store.GetDownstream(context.Background(), "a", 0)
	require.NoError(t, err)
	require.Len(t, down, 1)
	assert.Equal(t, "b", down[0].Node.ID)
}

func TestStoreListNodesFilter(t *testing.T) {
	store := migratedStore(t)
	seedDiamond(t, store)

	all, err := store.ListNodes(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "api", all[0].ID)

	dbs, err := store.ListNodes(context.Background(), &Filter{ResourceType: "rds_postgres"})
	require.NoError(t, err)
	require.Len(t, dbs, 1)
	assert.Equal(t, "db", dbs[0].ID)
}

func TestStoreVersion(t *testing.T) {
	store := migratedStore(t)

	// An empty graph_meta table is the fresh-install state.
	version, err := store.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unversioned", version)

	mustExec(t, store, `INSERT INTO graph_meta (id, version) VALUES (1, 'v42')`)
	version, err = store.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v42", version)
}
