package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tracelight/agent/internal/agent/config"
	"github.com/tracelight/agent/internal/logging"
)

// passphraseEnv lets non-interactive deployments supply the passphrase.
const passphraseEnv = "TRACELIGHT_PASSPHRASE"

// NewRootCmd builds the agent's command tree.
func NewRootCmd() *cobra.Command {
	var (
		cfgPath  string
		logLevel string
	)

	root := &cobra.Command{
		Use:          "agent",
		Short:        "Locally-resident activity capture agent",
		Long:         "Captures foreground-window activity into a local encrypted-at-sync store and uploads batches to a configured server.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to JSON config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(
		newRunCmd(&cfgPath, &logLevel),
		newStatusCmd(&cfgPath, &logLevel),
		newSyncCmd(&cfgPath, &logLevel),
		newConfigCmd(&cfgPath, &logLevel),
		newEventsCmd(&cfgPath, &logLevel),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command; it is the entry point used by main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp loads config and logging, builds an App and tears it down after fn
// returns. It keeps per-command boilerplate out of the RunE bodies.
func withApp(cfgPath, logLevel *string, fn func(ctx context.Context, app *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := config.LoadConfig(*cfgPath)
		if err != nil {
			return err
		}
		log := logging.NewDefault(logging.ParseLevel(*logLevel))

		app, err := NewApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := app.Close(); cerr != nil {
				fmt.Fprintf(os.Stderr, "close: %v\n", cerr)
			}
		}()

		return fn(ctx, app)
	}
}
