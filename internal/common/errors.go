// Package common defines shared constants and sentinel errors used across
// client and server layers of TaskVault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Sync-level errors. ErrDecryptFailed is never fatal: the sync engine
	// reads it as "assume pending local edits". ErrNetwork aborts the
	// current sync call and is retried by the next timer or notification.
	ErrDecryptFailed = errors.New("decrypt failed")
	ErrNetwork       = errors.New("network failure")
	ErrValidation    = errors.New("validation error")
	ErrSyncBusy      = errors.New("sync already in progress")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
