// Package records persists encrypted record envelopes in the local SQLite
// database. The repository never sees cleartext: the soft-delete flag and
// timestamps live inside the encrypted payload, so filtering on them is the
// store's job, after decryption.
package records

import (
	"context"

	"github.com/taskvault/taskvault/internal/client/models"
)

// Repository describes storage operations for Record envelopes.
type Repository interface {
	// Insert adds a new record. The (owner, id) pair must not exist yet.
	Insert(ctx context.Context, rec *models.Record) error

	// GetByID returns one record, or common.ErrorNotFound.
	GetByID(ctx context.Context, owner, id string) (*models.Record, error)

	// ListByOwner returns every record of the owner, including ones whose
	// payload marks them soft-deleted.
	ListByOwner(ctx context.Context, owner string) ([]models.Record, error)

	// Put replaces payload, nonce and server watermark of an existing
	// record, or common.ErrorNotFound.
	Put(ctx context.Context, rec *models.Record) error

	// SetServerWatermark advances only the watermark column.
	SetServerWatermark(ctx context.Context, owner, id string, ts int64) error

	// HardDelete physically removes the row. Idempotent.
	HardDelete(ctx context.Context, owner, id string) error
}
