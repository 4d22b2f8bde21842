package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/taskvault/taskvault/internal/common"
	"github.com/taskvault/taskvault/internal/server/models"
	"github.com/taskvault/taskvault/internal/server/repositories/records"
)

// RecordService stores and serves encrypted records. It assigns every
// pushed record a server timestamp that is strictly monotonic per owner,
// so clients can use it as their sole cross-device ordering key even when
// two pushes land within the same millisecond.
type RecordService struct {
	records records.Repository

	mu           sync.Mutex
	lastAssigned map[string]int64
}

func NewRecordService(repo records.Repository) *RecordService {
	return &RecordService{
		records:      repo,
		lastAssigned: make(map[string]int64),
	}
}

// nextTimestamp hands out the owner's next server timestamp: wall clock
// unless that would repeat or go backwards. Seeded from the repository on
// first use so monotonicity survives a restart.
func (s *RecordService) nextTimestamp(ctx context.Context, owner string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastAssigned[owner]
	if !ok {
		persisted, err := s.records.MaxServerUpdatedAt(ctx, owner)
		if err != nil {
			return 0, err
		}
		last = persisted
	}

	ts := time.Now().UnixMilli()
	if ts <= last {
		ts = last + 1
	}
	s.lastAssigned[owner] = ts
	return ts, nil
}

// Push upserts the records for the authenticated owner and returns the
// acknowledged record ids. The owner on every stored row comes from the
// authenticated identity, never from the request body. A malformed record
// fails the whole push: unlike fetch, the pushing device can fix and
// retry, so partial acceptance buys nothing.
func (s *RecordService) Push(ctx context.Context, owner string, recs []*models.StoredRecord) ([]string, error) {
	for _, rec := range recs {
		if rec.RecordId == "" || rec.Collection == "" || len(rec.EncryptedData) == 0 || len(rec.Nonce) == 0 {
			return nil, fmt.Errorf("record %q incomplete: %w", rec.RecordId, common.ErrValidation)
		}
	}

	ack := make([]string, 0, len(recs))
	for _, rec := range recs {
		ts, err := s.nextTimestamp(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("assigning timestamp: %w", err)
		}
		rec.Owner = owner
		rec.ServerUpdatedAt = ts
		if err := s.records.Upsert(ctx, rec); err != nil {
			return nil, fmt.Errorf("storing record %q: %w", rec.RecordId, err)
		}
		ack = append(ack, rec.RecordId)
	}
	return ack, nil
}

// Fetch returns the owner's records in the collection changed since the
// given timestamp. since=0 means everything.
func (s *RecordService) Fetch(ctx context.Context, owner, collection string, since int64) ([]*models.StoredRecord, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection is required: %w", common.ErrValidation)
	}
	recs, err := s.records.SelectUpdated(ctx, owner, collection, since)
	if err != nil {
		return nil, fmt.Errorf("selecting records: %w", err)
	}
	return recs, nil
}
