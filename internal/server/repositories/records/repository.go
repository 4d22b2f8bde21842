package records

import (
	"context"

	"github.com/taskvault/taskvault/internal/server/models"
)

type Repository interface {
	// Upsert inserts or replaces the row keyed by (owner, collection,
	// record id). A conflicting row belonging to another owner is never
	// touched.
	Upsert(ctx context.Context, rec *models.StoredRecord) error

	// SelectUpdated returns the owner's records in the collection with
	// ServerUpdatedAt > since, in ascending ServerUpdatedAt order.
	SelectUpdated(ctx context.Context, owner, collection string, since int64) ([]*models.StoredRecord, error)

	// MaxServerUpdatedAt returns the highest timestamp assigned to the
	// owner so far, 0 when the owner has no records.
	MaxServerUpdatedAt(ctx context.Context, owner string) (int64, error)
}
