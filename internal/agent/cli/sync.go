package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd(cfgPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upload pending events now",
		RunE: withApp(cfgPath, logLevel, func(ctx context.Context, app *App) error {
			if err := unlockKey(ctx, app); err != nil {
				return err
			}
			if err := app.SyncNow(ctx); err != nil {
				return err
			}
			status, err := app.SyncStatus(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("sync complete, %d events pending\n", status.PendingEvents)
			return nil
		}),
	}
}
