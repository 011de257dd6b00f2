package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/9triver/clusterrpc/internal/cluster/journal"
	"github.com/9triver/clusterrpc/internal/infra/database"
)

func newRepo(t *testing.T) journal.Repository {
	t.Helper()
	cfg := database.Config{}
	cfg.ApplyDefaults(filepath.Join(t.TempDir(), "data"))

	repo, err := NewJournalRepoSQLite(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestJournal_RecordAndQuery(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	entries := []*journal.Entry{
		{SessionID: "s1", Role: "client", Remote: "10.0.0.2:9090", Event: journal.EventCreated},
		{SessionID: "s1", Role: "client", Remote: "10.0.0.2:9090", Event: journal.EventConnected},
		{SessionID: "s2", Role: "server", Event: journal.EventCreated},
		{SessionID: "s1", Role: "client", Remote: "10.0.0.2:9090", Event: journal.EventClosed, Detail: "stopped"},
	}
	for _, e := range entries {
		require.NoError(t, repo.Record(ctx, e))
		assert.NotZero(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
	}

	all, err := repo.Query(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, journal.EventClosed, all[0].Event)
	assert.Equal(t, "stopped", all[0].Detail)

	s1, err := repo.Query(ctx, &journal.QueryOptions{SessionID: "s1"})
	require.NoError(t, err)
	assert.Len(t, s1, 3)

	created, err := repo.Query(ctx, &journal.QueryOptions{Event: journal.EventCreated})
	require.NoError(t, err)
	assert.Len(t, created, 2)

	byRemote, err := repo.Query(ctx, &journal.QueryOptions{Remote: "10.0.0.2:9090", Limit: 1})
	require.NoError(t, err)
	require.Len(t, byRemote, 1)
	assert.Equal(t, journal.EventClosed, byRemote[0].Event)

	s2, err := repo.Query(ctx, &journal.QueryOptions{SessionID: "s2"})
	require.NoError(t, err)
	require.Len(t, s2, 1)
	assert.Empty(t, s2[0].Remote)
}
