package localdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskvault/taskvault/internal/client/models"
)

func TestInitDatabase_MigratesAndWires(t *testing.T) {
	ctx := context.Background()

	repos, err := InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.DB.Close() })

	// tables exist and repositories work against them
	require.NoError(t, repos.Records.Insert(ctx, &models.Record{
		Id: "r1", Owner: "alice", Payload: []byte("ct"), Nonce: []byte("n"),
	}))
	got, err := repos.Records.GetByID(ctx, "alice", "r1")
	require.NoError(t, err)
	require.Equal(t, "r1", got.Id)

	require.NoError(t, repos.SyncState.SetDeviceID(ctx, "dev"))
	id, err := repos.SyncState.DeviceID(ctx)
	require.NoError(t, err)
	require.Equal(t, "dev", id)
}
