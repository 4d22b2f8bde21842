package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskvault/taskvault/internal/common"
)

func validRecord() SyncRecord {
	return SyncRecord{
		RecordId:      "r1",
		Collection:    "tasks",
		EncryptedData: []byte{1},
		Nonce:         []byte{2},
		Metadata:      SyncMetadata{LocalId: "r1", Owner: "alice", DeviceId: "d1", UpdatedAt: 1},
	}
}

func TestSyncRecord_Validate(t *testing.T) {
	require.NoError(t, validRecord().Validate())

	tests := []struct {
		name   string
		mutate func(*SyncRecord)
	}{
		{"no record id", func(r *SyncRecord) { r.RecordId = "" }},
		{"no collection", func(r *SyncRecord) { r.Collection = "" }},
		{"no owner", func(r *SyncRecord) { r.Metadata.Owner = "" }},
		{"no data", func(r *SyncRecord) { r.EncryptedData = nil }},
		{"no nonce", func(r *SyncRecord) { r.Nonce = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			require.ErrorIs(t, r.Validate(), common.ErrValidation)
		})
	}
}
