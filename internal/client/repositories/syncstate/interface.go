// Package syncstate persists the small pieces of sync bookkeeping that must
// survive a process restart: the device identity and the per-owner sync
// watermark.
package syncstate

import "context"

// Repository stores durable sync state.
type Repository interface {
	// DeviceID returns the persisted device identity, or "" when none has
	// been generated yet.
	DeviceID(ctx context.Context) (string, error)

	// SetDeviceID persists the device identity. Called once per
	// installation.
	SetDeviceID(ctx context.Context, id string) error

	// Watermark returns the owner's last-sync-completed timestamp in unix
	// milliseconds, 0 when the owner has never completed a sync.
	Watermark(ctx context.Context, owner string) (int64, error)

	// SetWatermark records the owner's last-sync-completed timestamp.
	SetWatermark(ctx context.Context, owner string, ts int64) error
}
