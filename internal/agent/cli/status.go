package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(cfgPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show capture and sync status",
		RunE: withApp(cfgPath, logLevel, func(ctx context.Context, app *App) error {
			capture, err := app.CaptureStatus(ctx)
			if err != nil {
				return err
			}
			syncStatus, err := app.SyncStatus(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("capture:   %s\n", onOff(capture.IsRunning))
			fmt.Printf("collected: %d events this session\n", capture.EventsCollected)
			if capture.ActiveWindow != "" {
				fmt.Printf("active:    %s\n", capture.ActiveWindow)
			}
			fmt.Printf("pending:   %d events\n", syncStatus.PendingEvents)
			fmt.Printf("last sync: %s\n", formatTime(syncStatus.LastSyncAt))
			if syncStatus.IsSyncing {
				fmt.Println("sync:      in progress")
			}
			if syncStatus.LastError != "" {
				fmt.Printf("last error: %s\n", syncStatus.LastError)
			}
			return nil
		}),
	}
}

func onOff(b bool) string {
	if b {
		return "running"
	}
	return "stopped"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}
