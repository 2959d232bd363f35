package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"socialsync-backend/internal/components/telemetry"
	libtelemetry "socialsync-backend/lib/telemetry"
	"socialsync-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "socialsync",
	Short: "socialsync collects follower and post counts of tracked social media profiles.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		libtelemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug reports")
}

func Execute() {
	ctx := serviceutil.SignalContext(context.Background())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads the config and opens the app, the returned func shuts everything down.
func openApp(ctx context.Context, withCollectors bool) (*App, func()) {
	config, err := LoadConfig(configPath)
	if err != nil {
		serviceutil.Fatal("failed to load config", err)
	}

	providers, err := libtelemetry.SetupFromEnv(ctx, "socialsync")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}

	app, err := NewApp(ctx, config, telemetry.SlogAPI{}, withCollectors)
	if err != nil {
		serviceutil.Fatal("failed to start", err)
	}

	return app, func() {
		if err := app.Close(); err != nil {
			slog.Error("failed to close", "err", err.Error())
		}
		if err := providers.Shutdown(context.Background()); err != nil {
			slog.Error("failed to shutdown telemetry", "err", err.Error())
		}
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
