package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskvault/taskvault/internal/common"
	"github.com/taskvault/taskvault/internal/server/models"
	"github.com/taskvault/taskvault/internal/server/repositories/records"
)

func testRecord(id string) *models.StoredRecord {
	return &models.StoredRecord{
		RecordId:      id,
		Collection:    "tasks",
		EncryptedData: []byte("ciphertext"),
		Nonce:         []byte("nonce"),
		Metadata:      []byte(`{"device_id":"dev-a"}`),
	}
}

func TestRecordService_PushAssignsMonotonicTimestamps(t *testing.T) {
	svc := NewRecordService(records.NewInMemoryRepository())
	ctx := context.Background()

	ack, err := svc.Push(ctx, "alice", []*models.StoredRecord{testRecord("r1"), testRecord("r2"), testRecord("r3")})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, ack)

	recs, err := svc.Fetch(ctx, "alice", "tasks", 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i := 1; i < len(recs); i++ {
		assert.Greater(t, recs[i].ServerUpdatedAt, recs[i-1].ServerUpdatedAt,
			"timestamps must be strictly increasing per owner")
	}
}

func TestRecordService_PushOverridesOwner(t *testing.T) {
	svc := NewRecordService(records.NewInMemoryRepository())
	ctx := context.Background()

	rec := testRecord("r1")
	rec.Owner = "mallory" // body claims someone else
	_, err := svc.Push(ctx, "alice", []*models.StoredRecord{rec})
	require.NoError(t, err)

	got, err := svc.Fetch(ctx, "alice", "tasks", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Owner)

	foreign, err := svc.Fetch(ctx, "mallory", "tasks", 0)
	require.NoError(t, err)
	assert.Empty(t, foreign)
}

func TestRecordService_PushRejectsIncompleteRecord(t *testing.T) {
	svc := NewRecordService(records.NewInMemoryRepository())
	ctx := context.Background()

	rec := testRecord("r1")
	rec.Nonce = nil
	_, err := svc.Push(ctx, "alice", []*models.StoredRecord{rec})
	require.ErrorIs(t, err, common.ErrValidation)

	got, err := svc.Fetch(ctx, "alice", "tasks", 0)
	require.NoError(t, err)
	assert.Empty(t, got, "nothing stored from a rejected push")
}

func TestRecordService_FetchSinceFilters(t *testing.T) {
	svc := NewRecordService(records.NewInMemoryRepository())
	ctx := context.Background()

	_, err := svc.Push(ctx, "alice", []*models.StoredRecord{testRecord("r1")})
	require.NoError(t, err)
	first, err := svc.Fetch(ctx, "alice", "tasks", 0)
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = svc.Push(ctx, "alice", []*models.StoredRecord{testRecord("r2")})
	require.NoError(t, err)

	later, err := svc.Fetch(ctx, "alice", "tasks", first[0].ServerUpdatedAt)
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, "r2", later[0].RecordId)
}

func TestRecordService_RepushReplacesRecord(t *testing.T) {
	svc := NewRecordService(records.NewInMemoryRepository())
	ctx := context.Background()

	_, err := svc.Push(ctx, "alice", []*models.StoredRecord{testRecord("r1")})
	require.NoError(t, err)
	before, _ := svc.Fetch(ctx, "alice", "tasks", 0)

	updated := testRecord("r1")
	updated.EncryptedData = []byte("new ciphertext")
	_, err = svc.Push(ctx, "alice", []*models.StoredRecord{updated})
	require.NoError(t, err)

	after, err := svc.Fetch(ctx, "alice", "tasks", 0)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, []byte("new ciphertext"), after[0].EncryptedData)
	assert.Greater(t, after[0].ServerUpdatedAt, before[0].ServerUpdatedAt)
}

func TestRecordService_FetchRequiresCollection(t *testing.T) {
	svc := NewRecordService(records.NewInMemoryRepository())

	_, err := svc.Fetch(context.Background(), "alice", "", 0)
	require.ErrorIs(t, err, common.ErrValidation)
}
