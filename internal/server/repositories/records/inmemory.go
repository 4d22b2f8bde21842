package records

import (
	"context"
	"sort"
	"sync"

	"github.com/taskvault/taskvault/internal/server/models"
)

type recordKey struct {
	owner      string
	collection string
	recordID   string
}

// InMemoryRepository keeps records in a map. Used by tests and by the
// server's in-memory mode.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[recordKey]models.StoredRecord
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[recordKey]models.StoredRecord)}
}

func (r *InMemoryRepository) Upsert(ctx context.Context, rec *models.StoredRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[recordKey{rec.Owner, rec.Collection, rec.RecordId}] = *rec
	return nil
}

func (r *InMemoryRepository) SelectUpdated(ctx context.Context, owner, collection string, since int64) ([]*models.StoredRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.StoredRecord
	for key, rec := range r.records {
		if key.owner == owner && key.collection == collection && rec.ServerUpdatedAt > since {
			rec := rec
			result = append(result, &rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ServerUpdatedAt < result[j].ServerUpdatedAt
	})
	return result, nil
}

func (r *InMemoryRepository) MaxServerUpdatedAt(ctx context.Context, owner string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var max int64
	for key, rec := range r.records {
		if key.owner == owner && rec.ServerUpdatedAt > max {
			max = rec.ServerUpdatedAt
		}
	}
	return max, nil
}
