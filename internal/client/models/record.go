// Package models defines client-side data models used by the TaskVault CLI
// and sync core.
package models

// Record is the encrypted envelope persisted in the local store and
// mirrored to the remote record service. There is at most one Record per
// (Owner, Id) and an Id is never reused.
type Record struct {
	// Id is a client-generated, globally unique identifier.
	Id string

	// Owner is the account the record belongs to; it scopes every query.
	Owner string

	// Payload is the AES-GCM ciphertext of the task payload.
	Payload []byte
	// Nonce is the AEAD nonce for Payload.
	Nonce []byte

	// ServerWatermark is the latest remote timestamp (unix ms) confirmed
	// for this record, 0 until the first confirmed sync. Only the sync
	// engine advances it; domain mutations must carry it forward verbatim.
	ServerWatermark int64
}
