// Command ngshift runs the NG-day and shift backend: the admin HTTP API with
// its reminder scheduler, plus one-shot maintenance jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/ngday-shift-backend/internal/config"
	"github.com/tbourn/ngday-shift-backend/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	envFile string
	app     *App
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ngshift",
		Short:         "NG-day requests, deadline reminders and shift assignment",
		SilenceUsage:  true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				app.Close(ctx)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(flushQueueCmd())
	rootCmd.AddCommand(provisionAdminCmd())
	return rootCmd
}

// initApp loads the environment, sets up logging and builds the App.
func initApp(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)
	log.Info().Str("version", version).Msg("starting")

	app, err = newApp(ctx, cfg)
	return err
}
