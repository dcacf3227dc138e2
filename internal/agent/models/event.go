// Package models defines the agent-side data types shared by the monitor,
// the store and the sync engine.
package models

import "time"

// EventTypeAppUsage is the only event kind the monitor currently produces.
const EventTypeAppUsage = "app_usage"

// ActivitySnapshot is a single observation of the foreground activity.
// WindowTitle is sanitized before the snapshot leaves the monitor.
type ActivitySnapshot struct {
	ProcessName string    `json:"process_name"`
	WindowTitle string    `json:"window_title"`
	Timestamp   time.Time `json:"timestamp"`
}

// StoredEvent is a durably persisted activity event.
//
// ID is globally unique and stable once written. Synced transitions only
// false->true. Duration is reserved and currently always zero.
type StoredEvent struct {
	ID          string
	EventType   string
	Timestamp   time.Time
	Duration    int
	AppName     string
	WindowTitle *string
	Synced      bool
	CreatedAt   time.Time
}
