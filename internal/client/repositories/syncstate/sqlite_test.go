package syncstate

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE sync_state (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return db
}

func TestDeviceID_RoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	id, err := r.DeviceID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id, "unset device id reads as empty")

	require.NoError(t, r.SetDeviceID(ctx, "dev-123"))

	id, err = r.DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dev-123", id)
}

func TestWatermark_PerOwner(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	ts, err := r.Watermark(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts, "never-synced owner has zero watermark")

	require.NoError(t, r.SetWatermark(ctx, "alice", 1700000000000))
	require.NoError(t, r.SetWatermark(ctx, "bob", 42))

	ts, err = r.Watermark(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts)

	ts, err = r.Watermark(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(42), ts)

	// overwrite
	require.NoError(t, r.SetWatermark(ctx, "alice", 1700000000001))
	ts, err = r.Watermark(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000001), ts)
}
