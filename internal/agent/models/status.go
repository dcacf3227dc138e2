package models

import "time"

// ServerConfig is the operator-supplied collection endpoint configuration.
// It is persisted as JSON under the server_config setting and cached in
// memory by the sync engine.
type ServerConfig struct {
	ServerURL string `json:"server_url"`
	Token     string `json:"jwt_token"`
	DeviceID  string `json:"device_id"`
}

// SyncStatus is a point-in-time view of the sync engine, assembled on demand
// from the in-flight flag and store-recorded facts. It is never persisted as
// its own entity.
type SyncStatus struct {
	IsSyncing     bool       `json:"is_syncing"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	PendingEvents int64      `json:"pending_events"`
	LastError     string     `json:"last_error,omitempty"`
}

// CaptureStatus is the operator-visible view of the activity monitor.
// EventsCollected is process-lifetime state and resets to zero on restart.
type CaptureStatus struct {
	IsRunning       bool       `json:"is_running"`
	EventsCollected int64      `json:"events_collected"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	ActiveWindow    string     `json:"active_window,omitempty"`
}
