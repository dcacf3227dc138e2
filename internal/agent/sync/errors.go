package sync

import "errors"

// Failure classes for a sync attempt. ErrNetwork and ErrServer are the only
// retryable ones; everything else fails the sync immediately.
var (
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrNotConfigured  = errors.New("server is not configured")
	ErrKeyNotSet      = errors.New("encryption key is not set")
	ErrAuth           = errors.New("Authentication failed")
	ErrNetwork        = errors.New("network error")
	ErrServer         = errors.New("server error")
	ErrEncryption     = errors.New("encryption error")
	ErrUnknown        = errors.New("unexpected sync error")
)
