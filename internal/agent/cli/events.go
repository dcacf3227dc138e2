package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd(cfgPath, logLevel *string) *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recently captured events, newest first",
		RunE: withApp(cfgPath, logLevel, func(ctx context.Context, app *App) error {
			events, err := app.Events(ctx, limit, offset)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("no events")
				return nil
			}
			for _, e := range events {
				title := ""
				if e.WindowTitle != nil {
					title = *e.WindowTitle
				}
				mark := " "
				if e.Synced {
					mark = "*"
				}
				fmt.Printf("%s %s  %-20s %s\n",
					mark, e.Timestamp.Local().Format(time.RFC3339), e.AppName, title)
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of events to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of events to skip")
	return cmd
}
