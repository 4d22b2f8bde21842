package sync

import (
	"context"

	"github.com/google/uuid"
	"github.com/taskvault/taskvault/internal/client/repositories/syncstate"
)

// EnsureDeviceID returns the installation's persisted device identity,
// generating and persisting a random one on first use. The id only ever
// serves echo suppression; it grants nothing.
func EnsureDeviceID(ctx context.Context, state syncstate.Repository) (string, error) {
	id, err := state.DeviceID(ctx)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := state.SetDeviceID(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}
