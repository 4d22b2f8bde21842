// Package store implements the Local Store: the durable, on-device,
// encrypted home of all task records. It owns payload encryption and
// decryption and the soft-delete lifecycle, and has no network dependency.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskvault/taskvault/internal/client/models"
	"github.com/taskvault/taskvault/internal/client/repositories/records"
	"github.com/taskvault/taskvault/internal/common"
	"github.com/taskvault/taskvault/internal/cryptox"
	"github.com/taskvault/taskvault/internal/dbx"
	"github.com/taskvault/taskvault/internal/logging"
)

// Store provides the record-level operations the CLI and the sync engine
// build on. All mutating read-modify-write flows run inside a transaction
// so the server watermark can never be lost to interleaving.
type Store struct {
	db     *sql.DB
	repo   records.Repository
	sealer cryptox.Sealer
	logger logging.Logger
}

func New(db *sql.DB, sealer cryptox.Sealer, logger logging.Logger) *Store {
	return &Store{
		db:     db,
		repo:   records.NewSQLiteRepository(db),
		sealer: sealer,
		logger: logger,
	}
}

// Create encrypts a fresh payload and inserts a new record for owner. The
// record id is generated here and never reused; the server watermark starts
// at zero (never confirmed).
func (s *Store) Create(ctx context.Context, owner string, fields models.TaskFields) (*models.TaskView, error) {
	now := time.Now().UnixMilli()
	payload := models.TaskPayload{
		Title:     fields.Title,
		Notes:     fields.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ct, nonce, err := s.sealer.Seal(owner, payload)
	if err != nil {
		return nil, fmt.Errorf("encryption error: %w", err)
	}

	rec := &models.Record{
		Id:      uuid.NewString(),
		Owner:   owner,
		Payload: ct,
		Nonce:   nonce,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}

	return &models.TaskView{Id: rec.Id, Payload: payload}, nil
}

// view decrypts rec into a TaskView. A record whose payload cannot be
// decrypted comes back as a clearly marked placeholder instead of an error,
// so one corrupt record never blocks the others.
func (s *Store) view(ctx context.Context, rec *models.Record) models.TaskView {
	v := models.TaskView{Id: rec.Id, ServerWatermark: rec.ServerWatermark}
	if err := s.sealer.Open(rec.Owner, rec.Payload, rec.Nonce, &v.Payload); err != nil {
		s.logger.Warn(ctx, "undecryptable record", "id", rec.Id, "error", err)
		v.Corrupt = true
		v.Payload = models.TaskPayload{Title: "(unreadable record)"}
	}
	return v
}

// Get returns one record's decrypted view, or common.ErrorNotFound.
func (s *Store) Get(ctx context.Context, owner, id string) (*models.TaskView, error) {
	rec, err := s.repo.GetByID(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	v := s.view(ctx, rec)
	return &v, nil
}

// ListByOwner returns decrypted views of the owner's records. Soft-deleted
// records are filtered out unless includeDeleted is set; corrupt records
// are always included, as placeholders.
func (s *Store) ListByOwner(ctx context.Context, owner string, includeDeleted bool) ([]models.TaskView, error) {
	recs, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	result := make([]models.TaskView, 0, len(recs))
	for i := range recs {
		v := s.view(ctx, &recs[i])
		if !includeDeleted && !v.Corrupt && v.Payload.Deleted {
			continue
		}
		result = append(result, v)
	}
	return result, nil
}

// Update applies the patch inside one transaction: get, decrypt, merge,
// re-encrypt, put. UpdatedAt is always bumped and the existing server
// watermark is carried forward verbatim — only the sync engine may change
// it. Returns common.ErrorNotFound for unknown ids and
// common.ErrDecryptFailed when the stored payload is unreadable (a corrupt
// record cannot be patched, only hard-deleted or repaired by a pull).
func (s *Store) Update(ctx context.Context, owner, id string, patch models.TaskPatch) (*models.TaskView, error) {
	var updated models.TaskView

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := records.NewSQLiteRepository(tx)

		rec, err := repo.GetByID(ctx, owner, id)
		if err != nil {
			return err
		}

		var payload models.TaskPayload
		if err := s.sealer.Open(owner, rec.Payload, rec.Nonce, &payload); err != nil {
			return fmt.Errorf("%w: %v", common.ErrDecryptFailed, err)
		}

		patch.Apply(&payload)

		ct, nonce, err := s.sealer.Seal(owner, payload)
		if err != nil {
			return fmt.Errorf("encryption error: %w", err)
		}

		rec.Payload = ct
		rec.Nonce = nonce
		// rec.ServerWatermark deliberately untouched
		if err := repo.Put(ctx, rec); err != nil {
			return err
		}

		updated = models.TaskView{Id: rec.Id, ServerWatermark: rec.ServerWatermark, Payload: payload}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SoftDelete marks the record deleted. The tombstone still syncs, so other
// devices learn about the deletion.
func (s *Store) SoftDelete(ctx context.Context, owner, id string) error {
	deleted := true
	_, err := s.Update(ctx, owner, id, models.TaskPatch{Deleted: &deleted})
	return err
}

// HardDelete physically removes the record.
func (s *Store) HardDelete(ctx context.Context, owner, id string) error {
	return s.repo.HardDelete(ctx, owner, id)
}

// SetServerWatermark advances a record's confirmed-sync timestamp. Sync
// engine only.
func (s *Store) SetServerWatermark(ctx context.Context, owner, id string, ts int64) error {
	return s.repo.SetServerWatermark(ctx, owner, id, ts)
}

// RawByOwner returns the owner's records as stored, ciphertext included.
// Sync engine only.
func (s *Store) RawByOwner(ctx context.Context, owner string) ([]models.Record, error) {
	return s.repo.ListByOwner(ctx, owner)
}

// RawByID returns one record as stored, or common.ErrorNotFound. Sync
// engine only.
func (s *Store) RawByID(ctx context.Context, owner, id string) (*models.Record, error) {
	return s.repo.GetByID(ctx, owner, id)
}

// Decode opens a raw record's payload. Failures come back as (wrapped)
// common.ErrDecryptFailed.
func (s *Store) Decode(rec *models.Record) (models.TaskPayload, error) {
	var payload models.TaskPayload
	err := s.sealer.Open(rec.Owner, rec.Payload, rec.Nonce, &payload)
	return payload, err
}

// InsertFromRemote stores a pulled record's ciphertext as-is, with the
// remote-assigned timestamp as the confirmed watermark. Sync engine only.
func (s *Store) InsertFromRemote(ctx context.Context, owner, id string, ct, nonce []byte, serverTS int64) error {
	return s.repo.Insert(ctx, &models.Record{
		Id:              id,
		Owner:           owner,
		Payload:         ct,
		Nonce:           nonce,
		ServerWatermark: serverTS,
	})
}

// ReplaceFromRemote replaces payload and watermark wholesale with the
// remote copy. Sync engine only, and only when the record has no pending
// local edits.
func (s *Store) ReplaceFromRemote(ctx context.Context, owner, id string, ct, nonce []byte, serverTS int64) error {
	return s.repo.Put(ctx, &models.Record{
		Id:              id,
		Owner:           owner,
		Payload:         ct,
		Nonce:           nonce,
		ServerWatermark: serverTS,
	})
}
