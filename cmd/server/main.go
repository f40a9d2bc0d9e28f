package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-file-browser/internal/app"
	"go-file-browser/internal/config"
	"go-file-browser/internal/logger"
)

type serveFunc func(ctx context.Context, overrides config.Overrides) error

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr, serve).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer, stderr io.Writer, run serveFunc) *cobra.Command {
	var overrides config.Overrides

	cmd := &cobra.Command{
		Use:           "file-browser",
		Short:         "Browse a directory over HTTP and download files or zip archives of it",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, overrides)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&overrides.DataDir, "data-dir", "d", "", "directory to serve (env DATA_DIR)")
	flags.StringVarP(&overrides.ListenAddress, "listen-address", "l", "", "address to bind (env LISTEN_ADDRESS)")
	flags.StringVarP(&overrides.Port, "port", "p", "", "port to listen on (env SERVER_PORT)")
	flags.StringVar(&overrides.BaseURL, "base-url", "", "public URL used in aria2 lists (env BASE_URL)")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	flags.StringVar(&overrides.LogFormat, "log-format", "", "pretty or json (env LOG_FORMAT)")

	return cmd
}

func serve(ctx context.Context, overrides config.Overrides) error {
	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(logger.New(os.Stdout, cfg.LogFormat, level)))

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return application.Run(ctx)
}
