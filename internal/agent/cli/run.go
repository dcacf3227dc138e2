package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tracelight/agent/internal/agent/metrics"
)

func newRunCmd(cfgPath, logLevel *string) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture activity and sync in the background until interrupted",
		RunE: withApp(cfgPath, logLevel, func(ctx context.Context, app *App) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := unlockKey(ctx, app); err != nil {
				// Capture still works without a key; only sync needs it.
				app.log.Warn(ctx, "encryption key not loaded, sync disabled", "err", err)
			}

			app.StartCapture(ctx)
			app.StartAutoSync(ctx)

			addr := metricsAddr
			if addr == "" {
				addr = app.cfg.MetricsAddr
			}
			srv := startMetricsServer(ctx, app, addr)

			<-ctx.Done()
			app.log.Info(context.Background(), "shutting down")

			app.StopCapture()
			if srv != nil {
				shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutCtx)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address (overrides config)")
	return cmd
}

func startMetricsServer(ctx context.Context, app *App, addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		app.log.Info(ctx, "metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.log.Error(ctx, "metrics server failed", "err", err)
		}
	}()
	return srv
}

// unlockKey loads the encryption key from the passphrase in the environment,
// falling back to an interactive prompt.
func unlockKey(ctx context.Context, app *App) error {
	if pass := os.Getenv(passphraseEnv); pass != "" {
		return app.SetKeyFromPassphrase(ctx, pass)
	}
	pass, err := promptPassphrase("Passphrase: ")
	if err != nil {
		return fmt.Errorf("reading passphrase: %w", err)
	}
	return app.SetKeyFromPassphrase(ctx, pass)
}
