package models

import "encoding/json"

// StoredRecord is a server-side record row. The server never decrypts
// anything: EncryptedData, Nonce and Metadata are opaque and pass through
// exactly as the pushing device sent them. ServerUpdatedAt is assigned by
// the server on push and is strictly monotonic per owner.
type StoredRecord struct {
	RecordId        string
	Owner           string
	Collection      string
	EncryptedData   []byte
	Nonce           []byte
	Metadata        json.RawMessage
	ServerUpdatedAt int64
}
