package models

import (
	"fmt"

	"github.com/taskvault/taskvault/internal/common"
)

// SyncMetadata travels with a SyncRecord. Everything here is set by the
// pushing device; the server passes it through untouched.
type SyncMetadata struct {
	// LocalId mirrors the record id (kept separate so domain metadata can
	// be extended without touching the routing key).
	LocalId string `json:"local_id"`
	Owner   string `json:"owner"`
	// UpdatedAt is the pushing device's local payload timestamp (unix ms).
	UpdatedAt int64 `json:"updated_at"`
	// DeviceId identifies the pushing device, used only for echo
	// suppression, never for authorization.
	DeviceId string `json:"device_id"`
}

// SyncRecord is the wire shape exchanged with the remote record service.
// ServerUpdatedAt is assigned by the server and is the sole trusted
// cross-device ordering key; local clocks are not comparable across
// devices.
type SyncRecord struct {
	RecordId        string       `json:"record_id"`
	Collection      string       `json:"collection"`
	EncryptedData   []byte       `json:"encrypted_data"`
	Nonce           []byte       `json:"nonce"`
	Metadata        SyncMetadata `json:"metadata"`
	ServerUpdatedAt int64        `json:"server_updated_at"`
}

// Validate checks the minimal shape a fetched record must have before the
// merge pass may look at it. A failing record is skipped and logged; it
// never aborts the batch.
func (r SyncRecord) Validate() error {
	switch {
	case r.RecordId == "":
		return fmt.Errorf("missing record_id: %w", common.ErrValidation)
	case r.Collection == "":
		return fmt.Errorf("missing collection: %w", common.ErrValidation)
	case r.Metadata.Owner == "":
		return fmt.Errorf("missing owner: %w", common.ErrValidation)
	case len(r.EncryptedData) == 0:
		return fmt.Errorf("empty encrypted_data: %w", common.ErrValidation)
	case len(r.Nonce) == 0:
		return fmt.Errorf("empty nonce: %w", common.ErrValidation)
	}
	return nil
}
