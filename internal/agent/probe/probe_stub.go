//go:build !windows

package probe

import (
	"context"
	"time"

	"github.com/tracelight/agent/internal/agent/models"
)

// System returns the platform probe. Only Windows has a real implementation;
// elsewhere both queries fail with ErrUnsupported and the monitor logs and
// carries on.
func System() Probe {
	return unsupported{}
}

type unsupported struct{}

func (unsupported) Foreground(context.Context) (models.ActivitySnapshot, error) {
	return models.ActivitySnapshot{}, ErrUnsupported
}

func (unsupported) IdleDuration(context.Context) (time.Duration, error) {
	return 0, ErrUnsupported
}
