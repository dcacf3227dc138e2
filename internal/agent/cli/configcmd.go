package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tracelight/agent/internal/agent/models"
	"github.com/tracelight/agent/internal/agent/sync"
)

func newConfigCmd(cfgPath, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage server configuration and the encryption key",
	}
	cmd.AddCommand(
		newConfigGetCmd(cfgPath, logLevel),
		newConfigSetCmd(cfgPath, logLevel),
		newConfigSetKeyCmd(cfgPath, logLevel),
	)
	return cmd
}

func newConfigGetCmd(cfgPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the stored server configuration",
		RunE: withApp(cfgPath, logLevel, func(ctx context.Context, app *App) error {
			cfg, err := app.ServerConfig(ctx)
			if err != nil {
				if errors.Is(err, sync.ErrNotConfigured) {
					fmt.Println("no server configured; run 'agent config set'")
					return nil
				}
				return err
			}

			fmt.Printf("server:    %s\n", cfg.ServerURL)
			fmt.Printf("device id: %s\n", cfg.DeviceID)
			fmt.Printf("token:     %s\n", maskToken(cfg.Token))
			if exp, err := sync.TokenExpiry(cfg.Token); err == nil && exp != nil {
				fmt.Printf("token exp: %s\n", exp.Local().Format(time.RFC3339))
			}
			return nil
		}),
	}
}

func newConfigSetCmd(cfgPath, logLevel *string) *cobra.Command {
	var (
		serverURL string
		token     string
		deviceID  string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the server configuration",
		RunE: withApp(cfgPath, logLevel, func(ctx context.Context, app *App) error {
			stored, err := app.SetServerConfig(ctx, models.ServerConfig{
				ServerURL: strings.TrimSpace(serverURL),
				Token:     strings.TrimSpace(token),
				DeviceID:  strings.TrimSpace(deviceID),
			})
			if err != nil {
				return err
			}
			fmt.Printf("configured %s as device %s\n", stored.ServerURL, stored.DeviceID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&serverURL, "url", "", "sync server base URL")
	cmd.Flags().StringVar(&token, "token", "", "bearer token")
	cmd.Flags().StringVar(&deviceID, "device-id", "", "device id (generated when omitted)")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newConfigSetKeyCmd(cfgPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Derive and verify the encryption key from a passphrase",
		RunE: withApp(cfgPath, logLevel, func(ctx context.Context, app *App) error {
			pass, err := promptPassphrase("Passphrase: ")
			if err != nil {
				return fmt.Errorf("reading passphrase: %w", err)
			}
			confirm, err := promptPassphrase("Confirm passphrase: ")
			if err != nil {
				return fmt.Errorf("reading passphrase: %w", err)
			}
			if pass != confirm {
				return errors.New("passphrases do not match")
			}
			if err := app.SetKeyFromPassphrase(ctx, pass); err != nil {
				return err
			}
			fmt.Println("encryption key set")
			return nil
		}),
	}
}

// promptPassphrase reads a passphrase without echo.
func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// maskToken keeps just enough of the token to recognize it.
func maskToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
