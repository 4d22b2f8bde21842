package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskvault/taskvault/internal/client/localdb"
	"github.com/taskvault/taskvault/internal/client/models"
	"github.com/taskvault/taskvault/internal/common"
	"github.com/taskvault/taskvault/internal/cryptox"
	"github.com/taskvault/taskvault/internal/logging"
)

const testOwner = "alice"

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupStore(t *testing.T) (*Store, *localdb.Repositories) {
	t.Helper()
	repos, err := localdb.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.DB.Close() })

	ring := cryptox.NewKeyring()
	ring.Put(testOwner, cryptox.DeriveMasterKey([]byte("pw"), []byte("salt")))

	return New(repos.DB, ring, testLogger()), repos
}

func TestCreateAndGet(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	v, err := s.Create(ctx, testOwner, models.TaskFields{Title: "buy milk", Notes: "2%"})
	require.NoError(t, err)
	require.NotEmpty(t, v.Id)
	assert.Equal(t, int64(0), v.ServerWatermark)

	got, err := s.Get(ctx, testOwner, v.Id)
	require.NoError(t, err)
	assert.False(t, got.Corrupt)
	assert.Equal(t, "buy milk", got.Payload.Title)
	assert.Equal(t, "2%", got.Payload.Notes)
	assert.Equal(t, got.Payload.CreatedAt, got.Payload.UpdatedAt)

	_, err = s.Get(ctx, testOwner, "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdate_PreservesServerWatermark(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	v, err := s.Create(ctx, testOwner, models.TaskFields{Title: "t"})
	require.NoError(t, err)

	// simulate a completed sync
	require.NoError(t, s.SetServerWatermark(ctx, testOwner, v.Id, 777))

	title := "renamed"
	before := time.Now().UnixMilli()
	updated, err := s.Update(ctx, testOwner, v.Id, models.TaskPatch{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Payload.Title)
	assert.GreaterOrEqual(t, updated.Payload.UpdatedAt, before, "UpdatedAt must be bumped")
	assert.Equal(t, int64(777), updated.ServerWatermark, "update must carry the watermark forward verbatim")

	// and again, to be sure nothing resets it
	done := true
	updated, err = s.Update(ctx, testOwner, v.Id, models.TaskPatch{Done: &done})
	require.NoError(t, err)
	assert.Equal(t, int64(777), updated.ServerWatermark)
}

func TestUpdate_NotFound(t *testing.T) {
	s, _ := setupStore(t)
	title := "x"
	_, err := s.Update(context.Background(), testOwner, "missing", models.TaskPatch{Title: &title})
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList_CorruptRecordDoesNotBlockOthers(t *testing.T) {
	s, repos := setupStore(t)
	ctx := context.Background()

	good, err := s.Create(ctx, testOwner, models.TaskFields{Title: "good"})
	require.NoError(t, err)

	// a record whose ciphertext was mangled on disk
	require.NoError(t, repos.Records.Insert(ctx, &models.Record{
		Id: "corrupt", Owner: testOwner, Payload: []byte("garbage"), Nonce: []byte("bad nonce!!!"),
	}))

	list, err := s.ListByOwner(ctx, testOwner, false)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := map[string]models.TaskView{}
	for _, v := range list {
		byID[v.Id] = v
	}
	assert.False(t, byID[good.Id].Corrupt)
	assert.True(t, byID["corrupt"].Corrupt)
	assert.Equal(t, "(unreadable record)", byID["corrupt"].Payload.Title)
}

func TestUpdate_CorruptRecordFails(t *testing.T) {
	s, repos := setupStore(t)
	ctx := context.Background()

	require.NoError(t, repos.Records.Insert(ctx, &models.Record{
		Id: "corrupt", Owner: testOwner, Payload: []byte("garbage"), Nonce: []byte("bad nonce!!!"), ServerWatermark: 5,
	}))

	title := "x"
	_, err := s.Update(ctx, testOwner, "corrupt", models.TaskPatch{Title: &title})
	require.ErrorIs(t, err, common.ErrDecryptFailed)

	// the failed update must not have touched the row
	raw, err := s.RawByID(ctx, testOwner, "corrupt")
	require.NoError(t, err)
	assert.Equal(t, []byte("garbage"), raw.Payload)
	assert.Equal(t, int64(5), raw.ServerWatermark)
}

func TestSoftDelete_And_HardDelete(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	v, err := s.Create(ctx, testOwner, models.TaskFields{Title: "t"})
	require.NoError(t, err)

	require.NoError(t, s.SoftDelete(ctx, testOwner, v.Id))

	list, err := s.ListByOwner(ctx, testOwner, false)
	require.NoError(t, err)
	assert.Empty(t, list, "soft-deleted records are filtered by default")

	list, err = s.ListByOwner(ctx, testOwner, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Payload.Deleted)

	require.NoError(t, s.HardDelete(ctx, testOwner, v.Id))
	_, err = s.Get(ctx, testOwner, v.Id)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestInsertAndReplaceFromRemote(t *testing.T) {
	s, _ := setupStore(t)
	ctx := context.Background()

	ring := cryptox.NewKeyring()
	ring.Put(testOwner, cryptox.DeriveMasterKey([]byte("pw"), []byte("salt")))
	ct, nonce, err := ring.Seal(testOwner, models.TaskPayload{Title: "from another device", CreatedAt: 1, UpdatedAt: 2})
	require.NoError(t, err)

	require.NoError(t, s.InsertFromRemote(ctx, testOwner, "rid", ct, nonce, 1000))

	got, err := s.Get(ctx, testOwner, "rid")
	require.NoError(t, err)
	assert.Equal(t, "from another device", got.Payload.Title)
	assert.Equal(t, int64(1000), got.ServerWatermark)

	ct2, nonce2, err := ring.Seal(testOwner, models.TaskPayload{Title: "newer", CreatedAt: 1, UpdatedAt: 3})
	require.NoError(t, err)
	require.NoError(t, s.ReplaceFromRemote(ctx, testOwner, "rid", ct2, nonce2, 2000))

	got, err = s.Get(ctx, testOwner, "rid")
	require.NoError(t, err)
	assert.Equal(t, "newer", got.Payload.Title)
	assert.Equal(t, int64(2000), got.ServerWatermark)
}
