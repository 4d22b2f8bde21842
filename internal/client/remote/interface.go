// Package remote defines the client's view of the Encrypted Remote Record
// Service and provides its HTTP implementation. The service stores opaque
// encrypted blobs keyed by collection and record id, authenticates requests
// as the owning identity, and assigns the authoritative server_updated_at
// timestamps; it is eventually consistent, so a push may not be visible to
// an immediately following fetch.
package remote

import (
	"context"

	"github.com/taskvault/taskvault/internal/client/models"
)

// Service is the abstract record service the sync engine talks to.
type Service interface {
	// Fetch returns the owner's records in the collection with
	// server_updated_at > since. A zero since means everything.
	Fetch(ctx context.Context, owner, collection string, since int64) ([]models.SyncRecord, error)

	// Push uploads a batch and returns the acknowledged record ids. The
	// server assigns server_updated_at; the caller must not guess it.
	Push(ctx context.Context, recs []models.SyncRecord) ([]string, error)
}
