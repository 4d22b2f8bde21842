package models

import "time"

// TaskPayload is the decrypted view of a record. It is never persisted in
// cleartext; the local store seals it before writing and opens it on read.
type TaskPayload struct {
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
	Done  bool   `json:"done"`

	// CreatedAt/UpdatedAt are unix milliseconds of the local clock.
	// UpdatedAt is bumped on every mutation and is only ever compared
	// against this record's own ServerWatermark, never against another
	// device's clock.
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`

	// Deleted marks a soft deletion. Physical removal happens only via an
	// explicit hard delete.
	Deleted bool `json:"deleted,omitempty"`
}

// TaskFields carries the caller-supplied fields for a new task.
type TaskFields struct {
	Title string
	Notes string
}

// TaskPatch is a partial update; nil fields are left unchanged.
type TaskPatch struct {
	Title   *string
	Notes   *string
	Done    *bool
	Deleted *bool
}

// Apply merges the patch into p and bumps UpdatedAt.
func (patch TaskPatch) Apply(p *TaskPayload) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	if patch.Done != nil {
		p.Done = *patch.Done
	}
	if patch.Deleted != nil {
		p.Deleted = *patch.Deleted
	}
	p.UpdatedAt = time.Now().UnixMilli()
}

// TaskView is what listing returns: the payload plus record identity and
// sync state. Corrupt is set when the stored payload could not be
// decrypted; such a record is shown as a placeholder instead of blocking
// the rest of the listing.
type TaskView struct {
	Id              string
	ServerWatermark int64
	Corrupt         bool
	Payload         TaskPayload
}
