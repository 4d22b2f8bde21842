// Package sync implements the synchronization engine: pull remote records,
// merge them under a last-writer-wins-with-safety-check policy, and push
// local records the remote side lacks or is behind on.
//
// The single correctness mechanism is the merge policy itself — there is no
// distributed locking. A record with pending local edits (payload UpdatedAt
// past its confirmed ServerWatermark) is never overwritten by a remote
// copy whose own edit time does not supersede them, no matter how new the
// server timestamp looks.
package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/taskvault/taskvault/internal/client/models"
	"github.com/taskvault/taskvault/internal/client/remote"
	"github.com/taskvault/taskvault/internal/client/repositories/syncstate"
	"github.com/taskvault/taskvault/internal/client/store"
	"github.com/taskvault/taskvault/internal/common"
	"github.com/taskvault/taskvault/internal/logging"
)

// DefaultRequestTimeout bounds each remote call. A sync that hits it fails
// as retryable; there is no mid-sync cancellation beyond this.
const DefaultRequestTimeout = 15 * time.Second

// Config holds the engine's collaborators. A struct because six fields is
// too many for positional parameters.
type Config struct {
	Store          *store.Store
	Remote         remote.Service
	State          syncstate.Repository
	DeviceID       string
	Logger         logging.Logger
	RequestTimeout time.Duration // defaults to DefaultRequestTimeout
}

// Options selects the flavor of one Sync call.
type Options struct {
	// Incremental scopes the pull to records changed since the owner's
	// sync watermark. A full pull ignores the watermark.
	Incremental bool
	// Manual marks a user-initiated sync; its errors surface to the user,
	// while background errors are only logged by the caller.
	Manual bool
}

// Summary reports what one Sync call did.
type Summary struct {
	Pulled  int // records created locally from remote
	Updated int // records whose payload was replaced by remote
	Pushed  int // records uploaded
}

// Engine orchestrates pull, merge and push for any number of owners, one
// sync at a time per owner.
type Engine struct {
	store   *store.Store
	remote  remote.Service
	state   syncstate.Repository
	logger  logging.Logger
	device  string
	timeout time.Duration

	mu       stdsync.Mutex
	sessions map[string]*session
}

func New(cfg Config) *Engine {
	to := cfg.RequestTimeout
	if to == 0 {
		to = DefaultRequestTimeout
	}
	return &Engine{
		store:    cfg.Store,
		remote:   cfg.Remote,
		state:    cfg.State,
		logger:   cfg.Logger,
		device:   cfg.DeviceID,
		timeout:  to,
		sessions: make(map[string]*session),
	}
}

// DeviceID returns the identity this engine tags pushes with.
func (e *Engine) DeviceID() string { return e.device }

func (e *Engine) session(owner string) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[owner]
	if !ok {
		s = &session{}
		e.sessions[owner] = s
	}
	return s
}

// Unsynced reports whether the owner's last sync attempt failed, i.e. there
// may be local changes the remote side has not seen.
func (e *Engine) Unsynced(owner string) bool {
	return e.session(owner).unsynced()
}

// Sync runs one pull+merge+push cycle for owner. When a sync for the owner
// is already in flight it returns common.ErrSyncBusy immediately; callers
// skip rather than queue. On a network failure the remaining steps are
// abandoned without further side effects, leaving state as of the last
// completed step.
func (e *Engine) Sync(ctx context.Context, owner string, opts Options) (Summary, error) {
	sess := e.session(owner)
	if !sess.begin(opts.Manual) {
		return Summary{}, common.ErrSyncBusy
	}

	summary, err := e.sync(ctx, owner, opts)
	sess.end(err)
	if err != nil {
		e.logger.Warn(ctx, "sync failed", "owner", owner, "error", err)
		return summary, err
	}

	e.logger.Info(ctx, "sync finished", "owner", owner,
		"pulled", summary.Pulled, "updated", summary.Updated, "pushed", summary.Pushed)
	return summary, nil
}

func (e *Engine) sync(ctx context.Context, owner string, opts Options) (Summary, error) {
	var summary Summary

	since := int64(0)
	if opts.Incremental {
		wm, err := e.state.Watermark(ctx, owner)
		if err != nil {
			return summary, err
		}
		since = wm
	}

	fetched, err := e.fetch(ctx, owner, since)
	if err != nil {
		return summary, err
	}

	byID := make(map[string]models.SyncRecord, len(fetched))
	for _, rec := range fetched {
		if err := rec.Validate(); err != nil {
			e.logger.Warn(ctx, "skipping malformed sync record", "record_id", rec.RecordId, "error", err)
			continue
		}
		if rec.Metadata.Owner != owner {
			e.logger.Warn(ctx, "skipping foreign sync record", "record_id", rec.RecordId)
			continue
		}
		byID[rec.RecordId] = rec
	}

	for _, rec := range byID {
		if err := e.merge(ctx, owner, rec, &summary); err != nil {
			return summary, err
		}
	}

	batch, err := e.collectPush(ctx, owner, byID)
	if err != nil {
		return summary, err
	}
	if len(batch) > 0 {
		if err := e.push(ctx, batch); err != nil {
			return summary, err
		}
		summary.Pushed = len(batch)
		// ServerWatermark is deliberately not advanced here: the server
		// assigns the authoritative timestamp, and the confirming pull
		// (the echo path in merge) picks it up.
	}

	if err := e.state.SetWatermark(ctx, owner, time.Now().UnixMilli()); err != nil {
		return summary, err
	}
	return summary, nil
}

func (e *Engine) fetch(ctx context.Context, owner string, since int64) ([]models.SyncRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	recs, err := e.remote.Fetch(ctx, owner, common.TaskCollection, since)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return recs, nil
}

func (e *Engine) push(ctx context.Context, batch []models.SyncRecord) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if _, err := e.remote.Push(ctx, batch); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

// merge applies one fetched record against local state.
func (e *Engine) merge(ctx context.Context, owner string, rec models.SyncRecord, summary *Summary) error {
	local, err := e.store.RawByID(ctx, owner, rec.RecordId)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		// Unknown locally: adopt the remote copy wholesale.
		if err := e.store.InsertFromRemote(ctx, owner, rec.RecordId, rec.EncryptedData, rec.Nonce, rec.ServerUpdatedAt); err != nil {
			return err
		}
		summary.Pulled++
		return nil
	}

	if rec.Metadata.DeviceId == e.device {
		// Echo of our own earlier push: confirm the server timestamp,
		// never touch the payload.
		if rec.ServerUpdatedAt > local.ServerWatermark {
			return e.store.SetServerWatermark(ctx, owner, rec.RecordId, rec.ServerUpdatedAt)
		}
		return nil
	}

	pending := true
	if payload, err := e.store.Decode(local); err == nil {
		// An edit past the confirmed watermark is pending — unless the
		// fetched copy was written at or after our edit time. Then the
		// remote writer built on a copy that already carried our edit
		// (our push landed, another device edited over it, and the echo
		// that would have confirmed our watermark is gone); holding out
		// for it would keep this record diverged forever. Ties still
		// favor local.
		pending = payload.UpdatedAt > local.ServerWatermark &&
			payload.UpdatedAt >= rec.Metadata.UpdatedAt
	}
	// A payload we cannot decrypt counts as pending: fail safe, never let
	// a stale remote read destroy what might be an unsynced local edit.

	if !pending && rec.ServerUpdatedAt > local.ServerWatermark {
		if err := e.store.ReplaceFromRemote(ctx, owner, rec.RecordId, rec.EncryptedData, rec.Nonce, rec.ServerUpdatedAt); err != nil {
			return err
		}
		summary.Updated++
	}
	return nil
}

// collectPush selects the local records the remote side lacks or is behind
// on. Ties favor local everywhere: only strictly newer loses.
func (e *Engine) collectPush(ctx context.Context, owner string, byID map[string]models.SyncRecord) ([]models.SyncRecord, error) {
	locals, err := e.store.RawByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	var batch []models.SyncRecord
	for i := range locals {
		local := &locals[i]

		payload, err := e.store.Decode(local)
		if err != nil {
			// We cannot read our own copy, so we cannot claim it is newer
			// than anyone else's. Never push it.
			e.logger.Warn(ctx, "not pushing undecryptable record", "record_id", local.Id)
			continue
		}

		include := false
		if rec, ok := byID[local.Id]; ok {
			include = payload.UpdatedAt > rec.ServerUpdatedAt
		} else {
			// Unseen in this pull. On a full pull that means the remote
			// lacks it; on an incremental pull it may simply be outside
			// the window, so only records with pending edits go out.
			include = payload.UpdatedAt > local.ServerWatermark
		}

		if include {
			batch = append(batch, models.SyncRecord{
				RecordId:      local.Id,
				Collection:    common.TaskCollection,
				EncryptedData: local.Payload,
				Nonce:         local.Nonce,
				Metadata: models.SyncMetadata{
					LocalId:   local.Id,
					Owner:     owner,
					UpdatedAt: payload.UpdatedAt,
					DeviceId:  e.device,
				},
			})
		}
	}
	return batch, nil
}
