// Package probe abstracts the operating-system queries the monitor needs:
// the current foreground window and how long the user has been idle.
package probe

import (
	"context"
	"errors"
	"time"

	"github.com/tracelight/agent/internal/agent/models"
)

var (
	// ErrNoForegroundWindow is returned when no window currently has focus.
	ErrNoForegroundWindow = errors.New("no foreground window")
	// ErrUnsupported is returned by probes on platforms without an
	// implementation. Callers treat it like any other probe failure:
	// skip the tick, or assume "not idle".
	ErrUnsupported = errors.New("platform not supported")
)

// Probe answers foreground and idle queries. Both operations are fallible;
// failures are expected to be transient and non-fatal.
type Probe interface {
	// Foreground returns a snapshot of the currently focused window.
	Foreground(ctx context.Context) (models.ActivitySnapshot, error)

	// IdleDuration returns how long the user has been without input.
	IdleDuration(ctx context.Context) (time.Duration, error)
}
